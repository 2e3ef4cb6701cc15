package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order statuses. The happy path is pending -> preparing -> ready -> delivered;
// cancelled can be entered from any non-terminal status.
const (
	StatusPending   = "pending"
	StatusPreparing = "preparing"
	StatusReady     = "ready"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

// OrderStatuses lists every valid order status value.
var OrderStatuses = []string{
	StatusPending,
	StatusPreparing,
	StatusReady,
	StatusDelivered,
	StatusCancelled,
}

// IsValidStatus reports whether s is one of the five order statuses.
func IsValidStatus(s string) bool {
	for _, status := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Order represents a single table's submitted order
type Order struct {
	ID           string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TableNumber  int             `gorm:"not null;check:table_number > 0" json:"table_number"`
	CustomerName string          `json:"customer_name"`
	Status       string          `gorm:"not null;default:'pending';index" json:"status"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"` // frozen at creation, never recomputed
	Notes        string          `gorm:"type:text" json:"notes"`
	IsRead       bool            `gorm:"not null;default:false" json:"is_read"` // false until staff acknowledges
	Items        []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// BeforeCreate assigns an opaque identifier before the row is written
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// IsTerminal reports whether the order has reached a terminal status
// (delivered or cancelled orders never move again).
func (o *Order) IsTerminal() bool {
	return o.Status == StatusDelivered || o.Status == StatusCancelled
}
