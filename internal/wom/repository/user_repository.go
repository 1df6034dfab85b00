package repository

import (
	"github.com/taufiqfebriant/wo-management/internal/wom/entity"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(id string) (*entity.User, error) {
	var user entity.User
	err := r.db.Where("id = ? AND deleted_at IS NULL", id).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// List returns non-deleted users, optionally restricted to a role code.
func (r *UserRepository) List(roleCode string) ([]entity.User, error) {
	query := r.db.Model(&entity.User{}).Where("users.deleted_at IS NULL")
	if roleCode != "" {
		query = query.
			Joins("JOIN user_roles ur ON ur.user_id = users.id").
			Joins("JOIN roles r ON r.id = ur.role_id").
			Where("r.code = ?", roleCode)
	}
	var users []entity.User
	err := query.Order("users.name").Find(&users).Error
	return users, err
}
