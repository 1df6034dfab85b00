package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/taufiqfebriant/wo-management/internal/wom/repository"
	"github.com/taufiqfebriant/wo-management/internal/wom/service"
)

// Handlers is the HTTP handler collection.
type Handlers struct {
	Product   *ProductHandler
	WorkOrder *WorkOrderHandler
	Report    *ReportHandler
	User      *UserHandler
}

func NewHandlers(svc *service.Services, repos *repository.Repositories) *Handlers {
	return &Handlers{
		Product:   NewProductHandler(svc.Product),
		WorkOrder: NewWorkOrderHandler(svc.WorkOrder),
		Report:    NewReportHandler(svc.Report),
		User:      NewUserHandler(repos.User),
	}
}

// Response is the common envelope. code 0 means success; error codes embed
// the HTTP status in their first three digits (40400 → 404).
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse wraps paginated collections.
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

func NewPagination(page, size int, total int64) *Pagination {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 10
	}
	pages := total / int64(size)
	if total%int64(size) > 0 {
		pages++
	}
	return &Pagination{Page: page, PageSize: size, Total: total, TotalPages: pages}
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{Code: 0, Message: "success", Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{Code: 0, Message: "success", Data: data})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{Code: code, Message: message})
}

// Fail maps service-layer errors onto the response envelope.
func Fail(c *gin.Context, err error) {
	var verr *service.ValidationError
	var perr *service.PolicyError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		Error(c, 40400, "Not found")
	case errors.As(err, &verr):
		Error(c, 40001, verr.Error())
	case errors.As(err, &perr):
		Error(c, 40900, perr.Message)
	default:
		Error(c, 50000, err.Error())
	}
}

// CurrentPrincipal rebuilds the acting identity from the JWT claims the auth
// middleware stored on the context. Core operations receive it explicitly.
func CurrentPrincipal(c *gin.Context) service.Principal {
	p := service.Principal{
		ID:   c.GetString("user_id"),
		Name: c.GetString("user_name"),
	}
	if roles, ok := c.Get("roles"); ok {
		if rs, ok := roles.([]string); ok {
			p.Roles = rs
		}
	}
	if perms, ok := c.Get("permissions"); ok {
		if ps, ok := perms.([]string); ok {
			p.Permissions = ps
		}
	}
	return p
}
