package service

import (
	"github.com/taufiqfebriant/wo-management/internal/wom/repository"
	"gorm.io/gorm"
)

// Services is the service collection wired at startup.
type Services struct {
	Product   *ProductService
	WorkOrder *WorkOrderService
	Report    *ReportService
}

func NewServices(repos *repository.Repositories, db *gorm.DB) *Services {
	return &Services{
		Product:   NewProductService(repos.Product, db),
		WorkOrder: NewWorkOrderService(repos.WorkOrder, repos.Product, repos.User, db),
		Report:    NewReportService(db),
	}
}
