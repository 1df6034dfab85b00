package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taufiqfebriant/wo-management/internal/wom/entity"
	"github.com/taufiqfebriant/wo-management/internal/wom/repository"
	"github.com/taufiqfebriant/wo-management/internal/wom/service"
)

type WorkOrderHandler struct {
	svc *service.WorkOrderService
}

func NewWorkOrderHandler(svc *service.WorkOrderService) *WorkOrderHandler {
	return &WorkOrderHandler{svc: svc}
}

func (h *WorkOrderHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	params := repository.ListParams{
		StartDeadline: c.Query("start_deadline"),
		EndDeadline:   c.Query("end_deadline"),
		Page:          page,
		Size:          size,
	}
	if raw, ok := c.GetQuery("status"); ok {
		code, err := strconv.Atoi(raw)
		if err != nil || !entity.WorkOrderStatus(code).Valid() {
			Error(c, 40001, "status: unknown status code "+raw)
			return
		}
		status := entity.WorkOrderStatus(code)
		params.Status = &status
	}

	wos, total, err := h.svc.List(c.Request.Context(), CurrentPrincipal(c), params)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, ListResponse{Items: wos, Pagination: NewPagination(page, size, total)})
}

func (h *WorkOrderHandler) Create(c *gin.Context) {
	var req service.CreateWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, 40001, err.Error())
		return
	}
	wo, err := h.svc.Create(c.Request.Context(), CurrentPrincipal(c), req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, wo)
}

func (h *WorkOrderHandler) Get(c *gin.Context) {
	wo, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, wo)
}

func (h *WorkOrderHandler) Update(c *gin.Context) {
	var req service.UpdateWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, 40001, err.Error())
		return
	}
	wo, err := h.svc.Update(c.Request.Context(), CurrentPrincipal(c), c.Param("id"), req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, wo)
}

func (h *WorkOrderHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), CurrentPrincipal(c), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}

func (h *WorkOrderHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, 40001, err.Error())
		return
	}
	wo, err := h.svc.UpdateStatus(c.Request.Context(), CurrentPrincipal(c), c.Param("id"), req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, wo)
}

func (h *WorkOrderHandler) AddProgress(c *gin.Context) {
	var req service.AddProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, 40001, err.Error())
		return
	}
	progress, err := h.svc.AddProgress(c.Request.Context(), CurrentPrincipal(c), c.Param("id"), req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, progress)
}
