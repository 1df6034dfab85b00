package repository

import (
	"github.com/taufiqfebriant/wo-management/internal/wom/entity"
	"gorm.io/gorm"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(p *entity.Product) error {
	return r.db.Create(p).Error
}

func (r *ProductRepository) GetByID(id string) (*entity.Product, error) {
	var p entity.Product
	err := r.db.Where("id = ? AND deleted_at IS NULL", id).First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// GetWithWorkOrders loads a product together with its live work orders.
func (r *ProductRepository) GetWithWorkOrders(id string) (*entity.Product, error) {
	var p entity.Product
	err := r.db.
		Preload("WorkOrders", func(db *gorm.DB) *gorm.DB {
			return db.Where("deleted_at IS NULL").Order("updated_at DESC, id DESC")
		}).
		Preload("WorkOrders.User").
		Where("id = ? AND deleted_at IS NULL", id).First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *ProductRepository) Update(p *entity.Product) error {
	return r.db.Save(p).Error
}

func (r *ProductRepository) List(page, size int) ([]entity.Product, int64, error) {
	query := r.db.Model(&entity.Product{}).Where("deleted_at IS NULL")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 10
	}

	var products []entity.Product
	err := query.Order("updated_at DESC, id DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&products).Error
	return products, total, err
}
