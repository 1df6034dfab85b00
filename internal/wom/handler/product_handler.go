package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taufiqfebriant/wo-management/internal/wom/service"
)

type ProductHandler struct {
	svc *service.ProductService
}

func NewProductHandler(svc *service.ProductService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

func (h *ProductHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	products, total, err := h.svc.List(c.Request.Context(), page, size)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, ListResponse{Items: products, Pagination: NewPagination(page, size, total)})
}

func (h *ProductHandler) Create(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, 40001, err.Error())
		return
	}
	p, err := h.svc.Create(c.Request.Context(), CurrentPrincipal(c), req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, p)
}

func (h *ProductHandler) Get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, p)
}

func (h *ProductHandler) Update(c *gin.Context) {
	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, 40001, err.Error())
		return
	}
	p, err := h.svc.Update(c.Request.Context(), CurrentPrincipal(c), c.Param("id"), req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, p)
}

func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), CurrentPrincipal(c), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}
