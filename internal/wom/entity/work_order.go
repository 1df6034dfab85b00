package entity

import (
	"time"
)

// WorkOrderStatus is the work order lifecycle state, stored as an integer code.
type WorkOrderStatus int

const (
	StatusPending    WorkOrderStatus = 0
	StatusInProgress WorkOrderStatus = 1
	StatusCompleted  WorkOrderStatus = 2
	StatusCanceled   WorkOrderStatus = 3
)

// Label is the single display mapping for status codes. Every layer that
// needs a human-readable status goes through here.
func (s WorkOrderStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	case StatusCanceled:
		return "Canceled"
	}
	return "Unknown"
}

func (s WorkOrderStatus) Valid() bool {
	return s >= StatusPending && s <= StatusCanceled
}

// NextStatuses returns the legal next steps for the dedicated status-update
// operation. Pending can only start, InProgress can only complete; the
// terminal states have no outgoing edge. Cancellation happens through the
// administrative edit path, which bypasses this graph.
func (s WorkOrderStatus) NextStatuses() []WorkOrderStatus {
	switch s {
	case StatusPending:
		return []WorkOrderStatus{StatusInProgress}
	case StatusInProgress:
		return []WorkOrderStatus{StatusCompleted}
	}
	return nil
}

func (s WorkOrderStatus) CanTransitionTo(next WorkOrderStatus) bool {
	for _, n := range s.NextStatuses() {
		if n == next {
			return true
		}
	}
	return false
}

// WorkOrder is a unit of manufacturing work issued against a product.
type WorkOrder struct {
	ID        string          `json:"id" gorm:"primaryKey;size:36"`
	Number    string          `json:"number" gorm:"size:32;not null;uniqueIndex"`
	ProductID string          `json:"product_id" gorm:"size:36;not null;index"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Deadline  time.Time       `json:"deadline" gorm:"type:date;not null"`
	Status    WorkOrderStatus `json:"status" gorm:"not null;default:0"`
	UserID    string          `json:"user_id" gorm:"size:36;not null;index"` // assigned operator
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt *time.Time      `json:"deleted_at" gorm:"index"`

	Product  *Product            `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	User     *User               `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Updates  []WorkOrderUpdate   `json:"updates,omitempty" gorm:"foreignKey:WorkOrderID"`
	Progress []WorkOrderProgress `json:"progress,omitempty" gorm:"foreignKey:WorkOrderID"`
}

func (WorkOrder) TableName() string {
	return "work_orders"
}

// StatusLabel exposes the display label alongside the raw code.
func (w *WorkOrder) StatusLabel() string {
	return w.Status.Label()
}

// WorkOrderUpdate is one entry in a work order's status audit trail.
//
// Append-only: rows are inserted exactly once per status-changing operation
// (including creation, which records Pending→Pending with the full order
// quantity) and never updated afterwards.
type WorkOrderUpdate struct {
	ID                string          `json:"id" gorm:"primaryKey;size:36"`
	WorkOrderID       string          `json:"work_order_id" gorm:"size:36;not null;index"`
	UserID            string          `json:"user_id" gorm:"size:36;not null"`
	PreviousStatus    WorkOrderStatus `json:"previous_status" gorm:"not null"`
	NewStatus         WorkOrderStatus `json:"new_status" gorm:"not null;index"`
	QuantityProcessed *int            `json:"quantity_processed"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DeletedAt         *time.Time      `json:"deleted_at" gorm:"index"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (WorkOrderUpdate) TableName() string {
	return "work_order_updates"
}

// WorkOrderProgress is a free-text note attached while an order is in progress.
type WorkOrderProgress struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	WorkOrderID string     `json:"work_order_id" gorm:"size:36;not null;index"`
	UserID      string     `json:"user_id" gorm:"size:36;not null"`
	Note        string     `json:"note" gorm:"type:text;not null"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at" gorm:"index"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (WorkOrderProgress) TableName() string {
	return "work_order_progress"
}
