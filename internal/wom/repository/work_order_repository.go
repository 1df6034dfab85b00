package repository

import (
	"github.com/taufiqfebriant/wo-management/internal/wom/entity"
	"gorm.io/gorm"
)

type WorkOrderRepository struct {
	db *gorm.DB
}

func NewWorkOrderRepository(db *gorm.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: db}
}

func (r *WorkOrderRepository) GetByID(id string) (*entity.WorkOrder, error) {
	var wo entity.WorkOrder
	err := r.db.Where("id = ? AND deleted_at IS NULL", id).First(&wo).Error
	if err != nil {
		return nil, translate(err)
	}
	return &wo, nil
}

// GetDetail loads a work order with its product, operator, audit trail and
// progress notes (both newest first, with the acting user).
func (r *WorkOrderRepository) GetDetail(id string) (*entity.WorkOrder, error) {
	var wo entity.WorkOrder
	err := r.db.
		Preload("Product").
		Preload("User").
		Preload("Updates", func(db *gorm.DB) *gorm.DB {
			return db.Where("deleted_at IS NULL").Order("created_at DESC, id DESC")
		}).
		Preload("Updates.User").
		Preload("Progress", func(db *gorm.DB) *gorm.DB {
			return db.Where("deleted_at IS NULL").Order("created_at DESC, id DESC")
		}).
		Preload("Progress.User").
		Where("id = ? AND deleted_at IS NULL", id).First(&wo).Error
	if err != nil {
		return nil, translate(err)
	}
	return &wo, nil
}

// ListParams filters the work order listing. Status/deadline filters are
// applied before the operator scoping filter.
type ListParams struct {
	Status        *entity.WorkOrderStatus
	StartDeadline string // YYYY-MM-DD, inclusive
	EndDeadline   string // YYYY-MM-DD, inclusive
	OperatorID    string // non-empty → scope to this assignee
	Page          int
	Size          int
}

func (r *WorkOrderRepository) List(params ListParams) ([]entity.WorkOrder, int64, error) {
	query := r.db.Model(&entity.WorkOrder{}).Where("deleted_at IS NULL")

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	switch {
	case params.StartDeadline != "" && params.EndDeadline != "":
		query = query.Where("deadline BETWEEN ? AND ?", params.StartDeadline, params.EndDeadline)
	case params.StartDeadline != "":
		query = query.Where("deadline >= ?", params.StartDeadline)
	case params.EndDeadline != "":
		query = query.Where("deadline <= ?", params.EndDeadline)
	}
	if params.OperatorID != "" {
		query = query.Where("user_id = ?", params.OperatorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 10
	}

	var wos []entity.WorkOrder
	err := query.
		Preload("Product").
		Preload("User").
		Order("updated_at DESC, id DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).
		Find(&wos).Error
	return wos, total, err
}

// CountAll counts every work order ever created, soft-deleted included.
// Order numbers are derived from this historical count.
func (r *WorkOrderRepository) CountAll(tx *gorm.DB) (int64, error) {
	var total int64
	err := tx.Model(&entity.WorkOrder{}).Count(&total).Error
	return total, err
}
