package entity

import "gorm.io/gorm"

// AutoMigrate creates or updates all tables owned by this service.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// identity
		&User{},
		&Role{},
		&Permission{},
		&UserRole{},
		&RolePermission{},

		// catalog
		&Product{},

		// work orders
		&WorkOrder{},
		&WorkOrderUpdate{},
		&WorkOrderProgress{},
	)
}
