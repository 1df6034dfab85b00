package service

import (
	"context"
	"fmt"

	"github.com/taufiqfebriant/wo-management/internal/wom/entity"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ReportService derives summary statistics from the audit trail. Reports are
// recomputed on every request; there is no cache to invalidate.
type ReportService struct {
	db *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

// SummaryRow aggregates one product's work orders by the statuses their
// audit trails reached. Counts are distinct work orders; quantities sum the
// quantity_processed of the matching audit rows.
type SummaryRow struct {
	ProductID          string `json:"product_id"`
	ProductName        string `json:"product_name"`
	PendingCount       int64  `json:"pending_count"`
	InProgressCount    int64  `json:"in_progress_count"`
	CompletedCount     int64  `json:"completed_count"`
	CanceledCount      int64  `json:"canceled_count"`
	PendingQuantity    int64  `json:"pending_quantity"`
	InProgressQuantity int64  `json:"in_progress_quantity"`
	CompletedQuantity  int64  `json:"completed_quantity"`
	CanceledQuantity   int64  `json:"canceled_quantity"`
}

// summaryFrom joins products to their live work orders and audit rows.
// The aggregation reads new_status off the audit trail, not the work order's
// current status column, so historical transitions keep counting even after
// an administrative correction.
const summaryFrom = `
	FROM products p
	LEFT JOIN work_orders wo ON wo.product_id = p.id AND wo.deleted_at IS NULL
	LEFT JOIN work_order_updates u ON u.work_order_id = wo.id AND u.deleted_at IS NULL
	WHERE p.deleted_at IS NULL
`

func (s *ReportService) WorkOrderSummary(ctx context.Context, page, size int) ([]SummaryRow, int64, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 10
	}

	var total int64
	if err := s.db.WithContext(ctx).
		Raw(`SELECT COUNT(*) FROM products p WHERE p.deleted_at IS NULL`).
		Scan(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count summary rows: %w", err)
	}

	var rows []SummaryRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT
			p.id AS product_id,
			p.name AS product_name,
			COUNT(DISTINCT CASE WHEN u.new_status = ? THEN wo.id END) AS pending_count,
			COUNT(DISTINCT CASE WHEN u.new_status = ? THEN wo.id END) AS in_progress_count,
			COUNT(DISTINCT CASE WHEN u.new_status = ? THEN wo.id END) AS completed_count,
			COUNT(DISTINCT CASE WHEN u.new_status = ? THEN wo.id END) AS canceled_count,
			COALESCE(SUM(CASE WHEN u.new_status = ? THEN u.quantity_processed END), 0) AS pending_quantity,
			COALESCE(SUM(CASE WHEN u.new_status = ? THEN u.quantity_processed END), 0) AS in_progress_quantity,
			COALESCE(SUM(CASE WHEN u.new_status = ? THEN u.quantity_processed END), 0) AS completed_quantity,
			COALESCE(SUM(CASE WHEN u.new_status = ? THEN u.quantity_processed END), 0) AS canceled_quantity
		`+summaryFrom+`
		GROUP BY p.id, p.name
		ORDER BY p.name, p.id
		LIMIT ? OFFSET ?
	`,
		entity.StatusPending, entity.StatusInProgress, entity.StatusCompleted, entity.StatusCanceled,
		entity.StatusPending, entity.StatusInProgress, entity.StatusCompleted, entity.StatusCanceled,
		size, (page-1)*size,
	).Scan(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("work order summary: %w", err)
	}
	return rows, total, nil
}

// PerformanceRow reports one (operator, product) pair. Operators with no
// completed transitions still appear with zero aggregates.
type PerformanceRow struct {
	OperatorID        string  `json:"operator_id"`
	OperatorName      string  `json:"operator_name"`
	ProductID         *string `json:"product_id"`
	ProductName       *string `json:"product_name"`
	CompletedOrders   int64   `json:"completed_orders"`
	CompletedQuantity int64   `json:"completed_quantity"`
}

const performanceFrom = `
	FROM users us
	JOIN user_roles ur ON ur.user_id = us.id
	JOIN roles r ON r.id = ur.role_id AND r.code = ?
	LEFT JOIN work_orders wo ON wo.user_id = us.id AND wo.deleted_at IS NULL
	LEFT JOIN products p ON p.id = wo.product_id AND p.deleted_at IS NULL
	LEFT JOIN work_order_updates u ON u.work_order_id = wo.id AND u.deleted_at IS NULL
	WHERE us.deleted_at IS NULL
`

func (s *ReportService) OperatorPerformance(ctx context.Context, page, size int) ([]PerformanceRow, int64, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 10
	}

	var total int64
	if err := s.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM (
			SELECT us.id `+performanceFrom+` GROUP BY us.id, us.name, p.id, p.name
		) grouped
	`, entity.RoleOperator).Scan(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count performance rows: %w", err)
	}

	var rows []PerformanceRow
	err := s.db.WithContext(ctx).Raw(`
		SELECT
			us.id AS operator_id,
			us.name AS operator_name,
			p.id AS product_id,
			p.name AS product_name,
			COUNT(DISTINCT CASE WHEN u.new_status = ? THEN wo.id END) AS completed_orders,
			COALESCE(SUM(CASE WHEN u.new_status = ? THEN u.quantity_processed END), 0) AS completed_quantity
		`+performanceFrom+`
		GROUP BY us.id, us.name, p.id, p.name
		ORDER BY us.name, p.name NULLS FIRST, us.id
		LIMIT ? OFFSET ?
	`,
		entity.StatusCompleted, entity.StatusCompleted, entity.RoleOperator,
		size, (page-1)*size,
	).Scan(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("operator performance: %w", err)
	}
	return rows, total, nil
}

var summaryExportHeader = []string{
	"Product", "Pending Orders", "Pending Qty", "In Progress Orders", "In Progress Qty",
	"Completed Orders", "Completed Qty", "Canceled Orders", "Canceled Qty",
}

// ExportWorkOrderSummary renders the full summary as an xlsx workbook and
// returns the serialized bytes. The catalog is paged through until exhausted
// so the export never truncates.
func (s *ReportService) ExportWorkOrderSummary(ctx context.Context) ([]byte, error) {
	const exportPageSize = 1000

	var rows []SummaryRow
	for page := 1; ; page++ {
		batch, _, err := s.WorkOrderSummary(ctx, page, exportPageSize)
		if err != nil {
			return nil, err
		}
		rows = append(rows, batch...)
		if len(batch) < exportPageSize {
			break
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Work Order Summary"
	f.SetSheetName("Sheet1", sheet)

	for i, title := range summaryExportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, title)
	}
	for i, row := range rows {
		values := []interface{}{
			row.ProductName,
			row.PendingCount, row.PendingQuantity,
			row.InProgressCount, row.InProgressQuantity,
			row.CompletedCount, row.CompletedQuantity,
			row.CanceledCount, row.CanceledQuantity,
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
