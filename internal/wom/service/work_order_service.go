package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taufiqfebriant/wo-management/internal/wom/entity"
	"github.com/taufiqfebriant/wo-management/internal/wom/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// numberAttempts bounds the retry loop for order number generation. The
// number is derived from a historical count inside the insert transaction;
// a concurrent creation can win the same number, in which case the unique
// index rejects the insert and the whole transaction is retried, each
// attempt skipping one slot further past the conflict.
const numberAttempts = 3

type WorkOrderService struct {
	woRepo      *repository.WorkOrderRepository
	productRepo *repository.ProductRepository
	userRepo    *repository.UserRepository
	db          *gorm.DB
	events      *EventPublisher
}

func NewWorkOrderService(
	woRepo *repository.WorkOrderRepository,
	productRepo *repository.ProductRepository,
	userRepo *repository.UserRepository,
	db *gorm.DB,
) *WorkOrderService {
	return &WorkOrderService{
		woRepo:      woRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		db:          db,
	}
}

// SetEventPublisher wires the optional downstream event channel.
func (s *WorkOrderService) SetEventPublisher(events *EventPublisher) {
	s.events = events
}

type CreateWorkOrderRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	Deadline  string `json:"deadline" binding:"required"` // YYYY-MM-DD
	UserID    string `json:"user_id" binding:"required"`  // assigned operator
}

// Create validates the request and atomically inserts the work order plus
// its initial audit row (Pending→Pending, full order quantity). Product and
// operator existence are checked inside the insert transaction, so a
// concurrent delete cannot slip an order under a vanished product.
func (s *WorkOrderService) Create(ctx context.Context, principal Principal, req CreateWorkOrderRequest) (*entity.WorkOrder, error) {
	if req.Quantity <= 0 {
		return nil, invalid("quantity", "quantity must be a positive integer")
	}
	deadline, err := time.Parse("2006-01-02", req.Deadline)
	if err != nil {
		return nil, invalid("deadline", "deadline must be a valid date (YYYY-MM-DD)")
	}

	var wo *entity.WorkOrder
	for attempt := 0; attempt < numberAttempts; attempt++ {
		wo, err = s.createOnce(ctx, principal, req, deadline, attempt)
		if err != nil && isDuplicateNumber(err) {
			continue
		}
		break
	}
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, WorkOrderEvent{
		Type:        EventWorkOrderCreated,
		WorkOrderID: wo.ID,
		Number:      wo.Number,
		NewStatus:   statusPtr(wo.Status),
		UserID:      principal.ID,
		OccurredAt:  time.Now(),
	})
	return wo, nil
}

func (s *WorkOrderService) createOnce(ctx context.Context, principal Principal, req CreateWorkOrderRequest, deadline time.Time, attempt int) (*entity.WorkOrder, error) {
	var wo *entity.WorkOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product entity.Product
		if err := tx.Where("id = ? AND deleted_at IS NULL", req.ProductID).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid("product_id", "product not found")
			}
			return err
		}
		var operator entity.User
		if err := tx.Where("id = ? AND deleted_at IS NULL", req.UserID).First(&operator).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid("user_id", "operator not found")
			}
			return err
		}

		total, err := s.woRepo.CountAll(tx)
		if err != nil {
			return fmt.Errorf("count work orders: %w", err)
		}
		number := fmt.Sprintf("WO-%s-%03d", time.Now().Format("20060102"), total+1+int64(attempt))

		qty := req.Quantity
		wo = &entity.WorkOrder{
			ID:        uuid.New().String(),
			Number:    number,
			ProductID: req.ProductID,
			Quantity:  qty,
			Deadline:  deadline,
			Status:    entity.StatusPending,
			UserID:    req.UserID,
		}
		if err := tx.Create(wo).Error; err != nil {
			return fmt.Errorf("create work order: %w", err)
		}

		upd := &entity.WorkOrderUpdate{
			ID:                uuid.New().String(),
			WorkOrderID:       wo.ID,
			UserID:            principal.ID,
			PreviousStatus:    entity.StatusPending,
			NewStatus:         entity.StatusPending,
			QuantityProcessed: &qty,
		}
		if err := tx.Create(upd).Error; err != nil {
			return fmt.Errorf("create audit row: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wo, nil
}

// isDuplicateNumber recognizes a unique-index conflict on work_orders.number.
// Other duplicate-key errors must not trigger the numbering retry.
func isDuplicateNumber(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "duplicate key") &&
		strings.Contains(err.Error(), "work_orders_number")
}

func statusPtr(s entity.WorkOrderStatus) *entity.WorkOrderStatus {
	return &s
}

type UpdateStatusRequest struct {
	// no binding on Status: 0 (Pending) must reach the transition check so
	// the rejection names the field instead of a generic bind error
	Status            entity.WorkOrderStatus `json:"status"`
	QuantityProcessed int                    `json:"quantity_processed" binding:"required"`
}

// UpdateStatus advances a work order one legal step (Pending→InProgress,
// InProgress→Completed). The read, validation, audit insert and status write
// run under a row lock in one transaction so two concurrent calls cannot
// both apply the same transition.
func (s *WorkOrderService) UpdateStatus(ctx context.Context, principal Principal, id string, req UpdateStatusRequest) (*entity.WorkOrder, error) {
	var wo entity.WorkOrder
	var prev entity.WorkOrderStatus

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND deleted_at IS NULL", id).
			First(&wo).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repository.ErrNotFound
		}
		if err != nil {
			return err
		}

		if !wo.Status.CanTransitionTo(req.Status) {
			return invalid("status", "status cannot change from %s to %s",
				wo.Status.Label(), req.Status.Label())
		}
		if req.QuantityProcessed < 1 || req.QuantityProcessed > wo.Quantity {
			return invalid("quantity_processed", "processed quantity must be between 1 and %d", wo.Quantity)
		}

		prev = wo.Status
		qty := req.QuantityProcessed
		upd := &entity.WorkOrderUpdate{
			ID:                uuid.New().String(),
			WorkOrderID:       wo.ID,
			UserID:            principal.ID,
			PreviousStatus:    prev,
			NewStatus:         req.Status,
			QuantityProcessed: &qty,
		}
		if err := tx.Create(upd).Error; err != nil {
			return fmt.Errorf("create audit row: %w", err)
		}
		if err := tx.Model(&wo).Update("status", req.Status).Error; err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, WorkOrderEvent{
		Type:           EventStatusChanged,
		WorkOrderID:    wo.ID,
		Number:         wo.Number,
		PreviousStatus: statusPtr(prev),
		NewStatus:      statusPtr(req.Status),
		UserID:         principal.ID,
		OccurredAt:     time.Now(),
	})
	return &wo, nil
}

type AddProgressRequest struct {
	Note string `json:"note" binding:"required"`
}

// AddProgress appends a progress note. Notes are only allowed while the work
// order is in progress.
func (s *WorkOrderService) AddProgress(ctx context.Context, principal Principal, id string, req AddProgressRequest) (*entity.WorkOrderProgress, error) {
	if strings.TrimSpace(req.Note) == "" {
		return nil, invalid("note", "note is required")
	}

	wo, err := s.woRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if wo.Status != entity.StatusInProgress {
		return nil, &PolicyError{Message: "progress notes can only be added while the work order is in progress"}
	}

	progress := &entity.WorkOrderProgress{
		ID:          uuid.New().String(),
		WorkOrderID: wo.ID,
		UserID:      principal.ID,
		Note:        req.Note,
	}
	if err := s.db.WithContext(ctx).Create(progress).Error; err != nil {
		return nil, fmt.Errorf("create progress note: %w", err)
	}

	s.events.Publish(ctx, WorkOrderEvent{
		Type:        EventProgressAdded,
		WorkOrderID: wo.ID,
		Number:      wo.Number,
		UserID:      principal.ID,
		OccurredAt:  time.Now(),
	})
	return progress, nil
}

type UpdateWorkOrderRequest struct {
	ProductID string                 `json:"product_id" binding:"required"`
	Quantity  int                    `json:"quantity" binding:"required,gt=0"`
	Deadline  string                 `json:"deadline" binding:"required"`
	Status    entity.WorkOrderStatus `json:"status"`
	UserID    string                 `json:"user_id" binding:"required"`
}

// Update is the administrative override: it rewrites all mutable fields and
// may set any status without consulting the transition graph. Unlike the
// constrained path it still records an audit row, so corrections stay
// visible in the trail.
func (s *WorkOrderService) Update(ctx context.Context, principal Principal, id string, req UpdateWorkOrderRequest) (*entity.WorkOrder, error) {
	if req.Quantity <= 0 {
		return nil, invalid("quantity", "quantity must be a positive integer")
	}
	deadline, err := time.Parse("2006-01-02", req.Deadline)
	if err != nil {
		return nil, invalid("deadline", "deadline must be a valid date (YYYY-MM-DD)")
	}
	if !req.Status.Valid() {
		return nil, invalid("status", "unknown status code %d", req.Status)
	}
	if _, err := s.productRepo.GetByID(req.ProductID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalid("product_id", "product not found")
		}
		return nil, err
	}
	if _, err := s.userRepo.GetByID(req.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalid("user_id", "operator not found")
		}
		return nil, err
	}

	wo, err := s.woRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	prev := wo.Status
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wo.ProductID = req.ProductID
		wo.Quantity = req.Quantity
		wo.Deadline = deadline
		wo.Status = req.Status
		wo.UserID = req.UserID
		if err := tx.Save(wo).Error; err != nil {
			return fmt.Errorf("update work order: %w", err)
		}

		qty := req.Quantity
		upd := &entity.WorkOrderUpdate{
			ID:                uuid.New().String(),
			WorkOrderID:       wo.ID,
			UserID:            principal.ID,
			PreviousStatus:    prev,
			NewStatus:         req.Status,
			QuantityProcessed: &qty,
		}
		if err := tx.Create(upd).Error; err != nil {
			return fmt.Errorf("create audit row: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if prev != req.Status {
		s.events.Publish(ctx, WorkOrderEvent{
			Type:           EventStatusChanged,
			WorkOrderID:    wo.ID,
			Number:         wo.Number,
			PreviousStatus: statusPtr(prev),
			NewStatus:      statusPtr(req.Status),
			UserID:         principal.ID,
			OccurredAt:     time.Now(),
		})
	}
	return wo, nil
}

// Delete hard-deletes the audit trail and progress notes and tombstones the
// work order itself, atomically.
func (s *WorkOrderService) Delete(ctx context.Context, principal Principal, id string) error {
	if _, err := s.woRepo.GetByID(id); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("work_order_id = ?", id).
			Delete(&entity.WorkOrderUpdate{}).Error; err != nil {
			return fmt.Errorf("delete audit rows: %w", err)
		}
		if err := tx.Where("work_order_id = ?", id).
			Delete(&entity.WorkOrderProgress{}).Error; err != nil {
			return fmt.Errorf("delete progress notes: %w", err)
		}
		if err := tx.Model(&entity.WorkOrder{}).
			Where("id = ?", id).
			Update("deleted_at", time.Now()).Error; err != nil {
			return fmt.Errorf("tombstone work order: %w", err)
		}
		return nil
	})
}

func (s *WorkOrderService) Get(ctx context.Context, id string) (*entity.WorkOrder, error) {
	return s.woRepo.GetDetail(id)
}

// List applies the caller's filters, then scopes the result to the
// principal's own orders when they hold the operator role.
func (s *WorkOrderService) List(ctx context.Context, principal Principal, params repository.ListParams) ([]entity.WorkOrder, int64, error) {
	if principal.HasRole(entity.RoleOperator) {
		params.OperatorID = principal.ID
	}
	return s.woRepo.List(params)
}
