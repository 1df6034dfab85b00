package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taufiqfebriant/wo-management/internal/wom/entity"
	"github.com/taufiqfebriant/wo-management/internal/wom/repository"
	"gorm.io/gorm"
)

type ProductService struct {
	productRepo *repository.ProductRepository
	db          *gorm.DB
}

func NewProductService(productRepo *repository.ProductRepository, db *gorm.DB) *ProductService {
	return &ProductService{productRepo: productRepo, db: db}
}

type CreateProductRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateProductRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (s *ProductService) Create(ctx context.Context, principal Principal, req CreateProductRequest) (*entity.Product, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, invalid("name", "name is required")
	}

	p := &entity.Product{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.productRepo.Create(p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*entity.Product, error) {
	return s.productRepo.GetWithWorkOrders(id)
}

func (s *ProductService) List(ctx context.Context, page, size int) ([]entity.Product, int64, error) {
	return s.productRepo.List(page, size)
}

func (s *ProductService) Update(ctx context.Context, principal Principal, id string, req UpdateProductRequest) (*entity.Product, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, invalid("name", "name is required")
	}

	p, err := s.productRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	p.Name = req.Name
	p.Description = req.Description
	if err := s.productRepo.Update(p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

// Delete removes a product and everything under it in one transaction:
// audit rows and progress notes are hard-deleted, the work orders and the
// product itself keep soft-delete tombstones. A partial cascade is never
// observable.
func (s *ProductService) Delete(ctx context.Context, principal Principal, id string) error {
	if _, err := s.productRepo.GetByID(id); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var woIDs []string
		if err := tx.Model(&entity.WorkOrder{}).
			Where("product_id = ?", id).
			Pluck("id", &woIDs).Error; err != nil {
			return fmt.Errorf("collect work orders: %w", err)
		}

		now := time.Now()
		if len(woIDs) > 0 {
			if err := tx.Where("work_order_id IN ?", woIDs).
				Delete(&entity.WorkOrderUpdate{}).Error; err != nil {
				return fmt.Errorf("delete audit rows: %w", err)
			}
			if err := tx.Where("work_order_id IN ?", woIDs).
				Delete(&entity.WorkOrderProgress{}).Error; err != nil {
				return fmt.Errorf("delete progress notes: %w", err)
			}
			if err := tx.Model(&entity.WorkOrder{}).
				Where("id IN ? AND deleted_at IS NULL", woIDs).
				Update("deleted_at", now).Error; err != nil {
				return fmt.Errorf("tombstone work orders: %w", err)
			}
		}

		if err := tx.Model(&entity.Product{}).
			Where("id = ?", id).
			Update("deleted_at", now).Error; err != nil {
			return fmt.Errorf("tombstone product: %w", err)
		}
		return nil
	})
}
