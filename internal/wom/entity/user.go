package entity

import (
	"time"
)

// Seeded role codes. The permission layer treats roles as data; only these
// two are provisioned out of the box.
const (
	RoleManager  = "manager"
	RoleOperator = "operator"
)

// User identity. Authentication lives outside this service; users are
// referenced by work orders, audit entries and progress notes.
type User struct {
	ID        string     `json:"id" gorm:"primaryKey;size:36"`
	Name      string     `json:"name" gorm:"size:64;not null"`
	Email     string     `json:"email" gorm:"size:128;uniqueIndex"`
	Status    string     `json:"status" gorm:"size:16;not null;default:active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at" gorm:"index"`

	Roles []Role `json:"roles,omitempty" gorm:"many2many:user_roles;"`
}

func (User) TableName() string {
	return "users"
}

// Role groups a permission set.
type Role struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Code      string    `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name      string    `json:"name" gorm:"size:64;not null"`
	IsSystem  bool      `json:"is_system" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Permissions []Permission `json:"permissions,omitempty" gorm:"many2many:role_permissions;"`
}

func (Role) TableName() string {
	return "roles"
}

// Permission is a single grantable capability, identified by its code string
// (e.g. "update work order status").
type Permission struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Code      string    `json:"code" gorm:"size:128;not null;uniqueIndex"`
	Name      string    `json:"name" gorm:"size:128;not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (Permission) TableName() string {
	return "permissions"
}

// UserRole links users to roles.
type UserRole struct {
	UserID    string    `json:"user_id" gorm:"primaryKey;size:36"`
	RoleID    string    `json:"role_id" gorm:"primaryKey;size:36"`
	CreatedAt time.Time `json:"created_at"`
}

func (UserRole) TableName() string {
	return "user_roles"
}

// RolePermission links roles to permissions.
type RolePermission struct {
	RoleID       string    `json:"role_id" gorm:"primaryKey;size:36"`
	PermissionID string    `json:"permission_id" gorm:"primaryKey;size:36"`
	CreatedAt    time.Time `json:"created_at"`
}

func (RolePermission) TableName() string {
	return "role_permissions"
}
