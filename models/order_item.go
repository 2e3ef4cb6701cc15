package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderItem represents one line within an order. Name and price are snapshot
// copies taken at order time: the live catalog may change later, the line
// item must not.
type OrderItem struct {
	ID           string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderID      string          `gorm:"not null;index;type:varchar(36)" json:"order_id"`
	Order        Order           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"-"` // omit owner to avoid recursive nesting
	MenuItemID   *string         `gorm:"type:varchar(36);index" json:"menu_item_id"`              // weak ref, nil once the catalog entry is gone
	ItemName     string          `gorm:"not null" json:"item_name"`
	PriceAtOrder decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price_at_order"`
	Quantity     int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

// BeforeCreate assigns an opaque identifier before the row is written
func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// LineTotal returns price_at_order * quantity for this line.
func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.PriceAtOrder.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
