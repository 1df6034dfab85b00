package handler

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/taufiqfebriant/wo-management/internal/wom/entity"
	"github.com/taufiqfebriant/wo-management/internal/wom/repository"
	"github.com/taufiqfebriant/wo-management/internal/wom/service"
	"github.com/taufiqfebriant/wo-management/internal/wom/testutil"
)

func setupWorkOrderTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db)
	handlers := NewHandlers(services, repos)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/work-orders", handlers.WorkOrder.List)
	api.POST("/work-orders", handlers.WorkOrder.Create)
	api.GET("/work-orders/:id", handlers.WorkOrder.Get)
	api.PUT("/work-orders/:id", handlers.WorkOrder.Update)
	api.DELETE("/work-orders/:id", handlers.WorkOrder.Delete)
	api.PATCH("/work-orders/:id/status", handlers.WorkOrder.UpdateStatus)
	api.POST("/work-orders/:id/progress", handlers.WorkOrder.AddProgress)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

// TestWorkOrderLifecycle walks one order through its whole life: creation
// with the initial audit entry, start, a progress note, completion, and the
// rejections in between.
func TestWorkOrderLifecycle(t *testing.T) {
	env := setupWorkOrderTest(t)

	testutil.SeedTestUser(t, env.DB, "mgr-001", "Maya Manager")
	operator := testutil.SeedOperator(t, env.DB, "op-001", "Omar Operator")
	product := testutil.SeedTestProduct(t, env.DB, "prod-001", "Steel Bracket")

	managerToken := testutil.ManagerToken("mgr-001", "Maya Manager")
	operatorToken := testutil.OperatorToken("op-001", "Omar Operator")

	// Create
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/work-orders", map[string]interface{}{
		"product_id": product.ID,
		"quantity":   100,
		"deadline":   time.Now().AddDate(0, 0, 14).Format("2006-01-02"),
		"user_id":    operator.ID,
	}, managerToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	woID := data["id"].(string)
	wantNumber := "WO-" + time.Now().Format("20060102") + "-001"
	if data["number"] != wantNumber {
		t.Fatalf("expected number %s, got %v", wantNumber, data["number"])
	}
	if entity.WorkOrderStatus(data["status"].(float64)) != entity.StatusPending {
		t.Fatalf("expected Pending status, got %v", data["status"])
	}

	// Creation writes the initial audit row with the full order quantity
	var updates []entity.WorkOrderUpdate
	env.DB.Where("work_order_id = ?", woID).Find(&updates)
	if len(updates) != 1 {
		t.Fatalf("expected 1 audit row after creation, got %d", len(updates))
	}
	if updates[0].PreviousStatus != entity.StatusPending || updates[0].NewStatus != entity.StatusPending {
		t.Fatalf("initial audit row should record Pending→Pending, got %s→%s",
			updates[0].PreviousStatus.Label(), updates[0].NewStatus.Label())
	}
	if updates[0].QuantityProcessed == nil || *updates[0].QuantityProcessed != 100 {
		t.Fatalf("initial audit row should carry the order quantity")
	}

	// Progress notes are rejected while still pending
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/work-orders/"+woID+"/progress",
		map[string]interface{}{"note": "too early"}, operatorToken)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for note on pending order, got %d: %s", w.Code, w.Body.String())
	}

	// Pending is never a legal target; the rejection must name the field
	w = testutil.DoRequest(env.Router, http.MethodPatch, "/api/v1/work-orders/"+woID+"/status",
		map[string]interface{}{"status": entity.StatusPending, "quantity_processed": 10}, operatorToken)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for Pending target, got %d: %s", w.Code, w.Body.String())
	}
	if msg := testutil.ParseResponse(w)["message"].(string); !strings.Contains(msg, "status cannot change") {
		t.Fatalf("expected transition message, got %q", msg)
	}

	// Start the order
	w = testutil.DoRequest(env.Router, http.MethodPatch, "/api/v1/work-orders/"+woID+"/status",
		map[string]interface{}{"status": entity.StatusInProgress, "quantity_processed": 40}, operatorToken)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 starting order, got %d: %s", w.Code, w.Body.String())
	}

	// Repeating the same transition is illegal
	w = testutil.DoRequest(env.Router, http.MethodPatch, "/api/v1/work-orders/"+woID+"/status",
		map[string]interface{}{"status": entity.StatusInProgress, "quantity_processed": 10}, operatorToken)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 repeating transition, got %d: %s", w.Code, w.Body.String())
	}

	// Processed quantity may not exceed the order quantity
	w = testutil.DoRequest(env.Router, http.MethodPatch, "/api/v1/work-orders/"+woID+"/status",
		map[string]interface{}{"status": entity.StatusCompleted, "quantity_processed": 101}, operatorToken)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for excess quantity, got %d: %s", w.Code, w.Body.String())
	}

	// Notes are allowed while in progress
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/work-orders/"+woID+"/progress",
		map[string]interface{}{"note": "first batch through the press"}, operatorToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 adding note, got %d: %s", w.Code, w.Body.String())
	}

	// Complete
	w = testutil.DoRequest(env.Router, http.MethodPatch, "/api/v1/work-orders/"+woID+"/status",
		map[string]interface{}{"status": entity.StatusCompleted, "quantity_processed": 100}, operatorToken)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 completing order, got %d: %s", w.Code, w.Body.String())
	}

	// Completed orders accept no more notes
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/work-orders/"+woID+"/progress",
		map[string]interface{}{"note": "too late"}, operatorToken)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for note on completed order, got %d: %s", w.Code, w.Body.String())
	}

	// Trail: creation + two transitions
	env.DB.Where("work_order_id = ?", woID).Order("created_at").Find(&updates)
	if len(updates) != 3 {
		t.Fatalf("expected 3 audit rows, got %d", len(updates))
	}
	last := updates[2]
	if last.PreviousStatus != entity.StatusInProgress || last.NewStatus != entity.StatusCompleted {
		t.Fatalf("last audit row should record In Progress→Completed, got %s→%s",
			last.PreviousStatus.Label(), last.NewStatus.Label())
	}

	// Detail includes the trail and the note
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/work-orders/"+woID, nil, managerToken)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	detail := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if len(detail["updates"].([]interface{})) != 3 {
		t.Fatalf("expected 3 updates in detail, got %v", detail["updates"])
	}
	if len(detail["progress"].([]interface{})) != 1 {
		t.Fatalf("expected 1 progress note in detail, got %v", detail["progress"])
	}
}

func TestWorkOrderCreateValidation(t *testing.T) {
	env := setupWorkOrderTest(t)

	operator := testutil.SeedOperator(t, env.DB, "op-001", "Omar Operator")
	product := testutil.SeedTestProduct(t, env.DB, "prod-001", "Steel Bracket")
	token := testutil.ManagerToken("mgr-001", "Maya Manager")

	deadline := time.Now().AddDate(0, 0, 7).Format("2006-01-02")

	cases := []struct {
		name string
		body map[string]interface{}
	}{
		{"zero quantity", map[string]interface{}{
			"product_id": product.ID, "quantity": 0, "deadline": deadline, "user_id": operator.ID}},
		{"negative quantity", map[string]interface{}{
			"product_id": product.ID, "quantity": -5, "deadline": deadline, "user_id": operator.ID}},
		{"bad deadline", map[string]interface{}{
			"product_id": product.ID, "quantity": 10, "deadline": "not-a-date", "user_id": operator.ID}},
		{"unknown product", map[string]interface{}{
			"product_id": "missing", "quantity": 10, "deadline": deadline, "user_id": operator.ID}},
		{"unknown operator", map[string]interface{}{
			"product_id": product.ID, "quantity": 10, "deadline": deadline, "user_id": "missing"}},
	}
	for _, tc := range cases {
		w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/work-orders", tc.body, token)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d: %s", tc.name, w.Code, w.Body.String())
		}
	}

	var count int64
	env.DB.Model(&entity.WorkOrder{}).Count(&count)
	if count != 0 {
		t.Fatalf("no work orders should exist after rejected creates, found %d", count)
	}
}

// TestWorkOrderListScoping verifies operators only see their own assignments
// while managers see everything.
func TestWorkOrderListScoping(t *testing.T) {
	env := setupWorkOrderTest(t)

	opA := testutil.SeedOperator(t, env.DB, "op-a", "Operator A")
	opB := testutil.SeedOperator(t, env.DB, "op-b", "Operator B")
	product := testutil.SeedTestProduct(t, env.DB, "prod-001", "Steel Bracket")
	managerToken := testutil.ManagerToken("mgr-001", "Maya Manager")

	deadline := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	for _, uid := range []string{opA.ID, opA.ID, opB.ID} {
		w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/work-orders", map[string]interface{}{
			"product_id": product.ID, "quantity": 10, "deadline": deadline, "user_id": uid,
		}, managerToken)
		if w.Code != http.StatusCreated {
			t.Fatalf("seed create failed: %d: %s", w.Code, w.Body.String())
		}
	}

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/work-orders", nil, managerToken)
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if len(data["items"].([]interface{})) != 3 {
		t.Fatalf("manager should see 3 orders, got %v", data["items"])
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/work-orders", nil, testutil.OperatorToken(opA.ID, "Operator A"))
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("operator A should see 2 orders, got %d", len(items))
	}
	for _, item := range items {
		if item.(map[string]interface{})["user_id"] != opA.ID {
			t.Fatalf("operator A saw someone else's order: %v", item)
		}
	}

	// Status filter still applies inside the scope
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/work-orders?status=1", nil, testutil.OperatorToken(opA.ID, "Operator A"))
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if len(data["items"].([]interface{})) != 0 {
		t.Fatalf("no orders are in progress yet")
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/work-orders?status=9", nil, managerToken)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status filter, got %d", w.Code)
	}
}

// TestWorkOrderAdminUpdate exercises the override path: it may set any
// status, including cancellation, and still appends to the audit trail.
func TestWorkOrderAdminUpdate(t *testing.T) {
	env := setupWorkOrderTest(t)

	operator := testutil.SeedOperator(t, env.DB, "op-001", "Omar Operator")
	product := testutil.SeedTestProduct(t, env.DB, "prod-001", "Steel Bracket")
	managerToken := testutil.ManagerToken("mgr-001", "Maya Manager")

	deadline := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/work-orders", map[string]interface{}{
		"product_id": product.ID, "quantity": 50, "deadline": deadline, "user_id": operator.ID,
	}, managerToken)
	woID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	// Cancel straight from Pending, which the constrained path cannot do
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/work-orders/"+woID, map[string]interface{}{
		"product_id": product.ID,
		"quantity":   50,
		"deadline":   deadline,
		"status":     entity.StatusCanceled,
		"user_id":    operator.ID,
	}, managerToken)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var wo entity.WorkOrder
	env.DB.Where("id = ?", woID).First(&wo)
	if wo.Status != entity.StatusCanceled {
		t.Fatalf("expected Canceled, got %s", wo.Status.Label())
	}

	var updates []entity.WorkOrderUpdate
	env.DB.Where("work_order_id = ?", woID).Order("created_at").Find(&updates)
	if len(updates) != 2 {
		t.Fatalf("override must append an audit row, got %d rows", len(updates))
	}
	if updates[1].PreviousStatus != entity.StatusPending || updates[1].NewStatus != entity.StatusCanceled {
		t.Fatalf("audit row should record Pending→Canceled, got %s→%s",
			updates[1].PreviousStatus.Label(), updates[1].NewStatus.Label())
	}
}

// TestWorkOrderDelete verifies the cascade: children are removed, the order
// itself is tombstoned and disappears from reads.
func TestWorkOrderDelete(t *testing.T) {
	env := setupWorkOrderTest(t)

	operator := testutil.SeedOperator(t, env.DB, "op-001", "Omar Operator")
	product := testutil.SeedTestProduct(t, env.DB, "prod-001", "Steel Bracket")
	managerToken := testutil.ManagerToken("mgr-001", "Maya Manager")
	operatorToken := testutil.OperatorToken(operator.ID, operator.Name)

	deadline := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/work-orders", map[string]interface{}{
		"product_id": product.ID, "quantity": 20, "deadline": deadline, "user_id": operator.ID,
	}, managerToken)
	woID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	testutil.DoRequest(env.Router, http.MethodPatch, "/api/v1/work-orders/"+woID+"/status",
		map[string]interface{}{"status": entity.StatusInProgress, "quantity_processed": 5}, operatorToken)
	testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/work-orders/"+woID+"/progress",
		map[string]interface{}{"note": "halfway"}, operatorToken)

	w = testutil.DoRequest(env.Router, http.MethodDelete, "/api/v1/work-orders/"+woID, nil, managerToken)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var updateCount, progressCount int64
	env.DB.Model(&entity.WorkOrderUpdate{}).Where("work_order_id = ?", woID).Count(&updateCount)
	env.DB.Model(&entity.WorkOrderProgress{}).Where("work_order_id = ?", woID).Count(&progressCount)
	if updateCount != 0 || progressCount != 0 {
		t.Fatalf("children should be hard-deleted, got %d updates, %d notes", updateCount, progressCount)
	}

	var wo entity.WorkOrder
	if err := env.DB.Where("id = ?", woID).First(&wo).Error; err != nil {
		t.Fatalf("tombstoned row should still exist: %v", err)
	}
	if wo.DeletedAt == nil {
		t.Fatal("work order should carry a deletion timestamp")
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/work-orders/"+woID, nil, managerToken)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted order, got %d", w.Code)
	}

	// Deleting twice is a 404
	w = testutil.DoRequest(env.Router, http.MethodDelete, "/api/v1/work-orders/"+woID, nil, managerToken)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 deleting twice, got %d", w.Code)
	}
}

// TestWorkOrderDeadlineFilter pins the inclusive deadline-range semantics:
// orders whose deadline sits exactly on either bound are part of the result,
// and each bound works on its own.
func TestWorkOrderDeadlineFilter(t *testing.T) {
	env := setupWorkOrderTest(t)

	operator := testutil.SeedOperator(t, env.DB, "op-001", "Omar Operator")
	product := testutil.SeedTestProduct(t, env.DB, "prod-001", "Steel Bracket")
	managerToken := testutil.ManagerToken("mgr-001", "Maya Manager")

	deadlines := []string{"2026-09-10", "2026-09-15", "2026-09-20", "2026-09-25"}
	for _, d := range deadlines {
		w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/work-orders", map[string]interface{}{
			"product_id": product.ID, "quantity": 10, "deadline": d, "user_id": operator.ID,
		}, managerToken)
		if w.Code != http.StatusCreated {
			t.Fatalf("seed create failed: %d: %s", w.Code, w.Body.String())
		}
	}

	list := func(query string) []interface{} {
		t.Helper()
		w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/work-orders"+query, nil, managerToken)
		if w.Code != http.StatusOK {
			t.Fatalf("list %s failed: %d: %s", query, w.Code, w.Body.String())
		}
		data := testutil.ParseResponse(w)["data"].(map[string]interface{})
		return data["items"].([]interface{})
	}

	// Both bounds: orders on 10, 15 and 20 are in, 25 is out
	if items := list("?start_deadline=2026-09-10&end_deadline=2026-09-20"); len(items) != 3 {
		t.Errorf("two-sided range should include both endpoints, got %d orders", len(items))
	}

	// Start only: 20 and 25
	if items := list("?start_deadline=2026-09-20"); len(items) != 2 {
		t.Errorf("start bound should be inclusive, got %d orders", len(items))
	}

	// End only: just 10
	if items := list("?end_deadline=2026-09-10"); len(items) != 1 {
		t.Errorf("end bound should be inclusive, got %d orders", len(items))
	}

	// Empty window between existing deadlines
	if items := list("?start_deadline=2026-09-11&end_deadline=2026-09-14"); len(items) != 0 {
		t.Errorf("expected empty window, got %d orders", len(items))
	}
}

// TestWorkOrderNumberCollision seeds a row already holding the next number
// in sequence; creation must retry past the conflict instead of failing.
func TestWorkOrderNumberCollision(t *testing.T) {
	env := setupWorkOrderTest(t)

	operator := testutil.SeedOperator(t, env.DB, "op-001", "Omar Operator")
	product := testutil.SeedTestProduct(t, env.DB, "prod-001", "Steel Bracket")
	managerToken := testutil.ManagerToken("mgr-001", "Maya Manager")

	today := time.Now().Format("20060102")
	taken := &entity.WorkOrder{
		ID:        "wo-taken",
		Number:    "WO-" + today + "-002", // the slot a count-derived number would pick next
		ProductID: product.ID,
		Quantity:  5,
		Deadline:  time.Now().AddDate(0, 0, 7),
		Status:    entity.StatusPending,
		UserID:    operator.ID,
	}
	if err := env.DB.Create(taken).Error; err != nil {
		t.Fatalf("failed to seed colliding order: %v", err)
	}

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/work-orders", map[string]interface{}{
		"product_id": product.ID,
		"quantity":   10,
		"deadline":   time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
		"user_id":    operator.ID,
	}, managerToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 despite number conflict, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["number"] != "WO-"+today+"-003" {
		t.Fatalf("expected retry to take the next free slot, got %v", data["number"])
	}
}

// TestWorkOrderNumberSequence checks numbering continues across deletions:
// the counter includes tombstoned orders, so numbers never repeat.
func TestWorkOrderNumberSequence(t *testing.T) {
	env := setupWorkOrderTest(t)

	operator := testutil.SeedOperator(t, env.DB, "op-001", "Omar Operator")
	product := testutil.SeedTestProduct(t, env.DB, "prod-001", "Steel Bracket")
	managerToken := testutil.ManagerToken("mgr-001", "Maya Manager")
	deadline := time.Now().AddDate(0, 0, 7).Format("2006-01-02")

	create := func() map[string]interface{} {
		w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/work-orders", map[string]interface{}{
			"product_id": product.ID, "quantity": 10, "deadline": deadline, "user_id": operator.ID,
		}, managerToken)
		if w.Code != http.StatusCreated {
			t.Fatalf("create failed: %d: %s", w.Code, w.Body.String())
		}
		return testutil.ParseResponse(w)["data"].(map[string]interface{})
	}

	first := create()
	second := create()

	today := time.Now().Format("20060102")
	if first["number"] != "WO-"+today+"-001" || second["number"] != "WO-"+today+"-002" {
		t.Fatalf("unexpected numbers: %v, %v", first["number"], second["number"])
	}

	testutil.DoRequest(env.Router, http.MethodDelete, "/api/v1/work-orders/"+second["id"].(string), nil, managerToken)

	third := create()
	if third["number"] != "WO-"+today+"-003" {
		t.Fatalf("numbering must not reuse deleted slots, got %v", third["number"])
	}
}
