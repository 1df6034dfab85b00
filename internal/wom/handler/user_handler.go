package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/taufiqfebriant/wo-management/internal/wom/repository"
)

// UserHandler exposes the read-only user listing used to populate assignment
// forms. User management itself lives outside this service.
type UserHandler struct {
	userRepo *repository.UserRepository
}

func NewUserHandler(userRepo *repository.UserRepository) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.userRepo.List(c.Query("role"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, users)
}
