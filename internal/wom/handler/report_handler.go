package handler

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taufiqfebriant/wo-management/internal/wom/service"
)

type ReportHandler struct {
	svc *service.ReportService
}

func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

func (h *ReportHandler) WorkOrderSummary(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	rows, total, err := h.svc.WorkOrderSummary(c.Request.Context(), page, size)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, ListResponse{Items: rows, Pagination: NewPagination(page, size, total)})
}

func (h *ReportHandler) OperatorPerformance(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	rows, total, err := h.svc.OperatorPerformance(c.Request.Context(), page, size)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, ListResponse{Items: rows, Pagination: NewPagination(page, size, total)})
}

func (h *ReportHandler) ExportWorkOrderSummary(c *gin.Context) {
	data, err := h.svc.ExportWorkOrderSummary(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	filename := fmt.Sprintf("work-order-summary-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(200, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
