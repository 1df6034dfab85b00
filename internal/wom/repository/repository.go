package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories is the repository collection shared by the service layer.
type Repositories struct {
	User      *UserRepository
	Product   *ProductRepository
	WorkOrder *WorkOrderRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:      NewUserRepository(db),
		Product:   NewProductRepository(db),
		WorkOrder: NewWorkOrderRepository(db),
	}
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
