package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MenuItem represents a catalog entry guests can order from
type MenuItem struct {
	ID             string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name           string           `gorm:"not null" json:"name"`
	Description    string           `gorm:"type:text" json:"description"`
	Price          decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"price"`
	CategoryID     string           `gorm:"not null;index;type:varchar(36)" json:"category_id"`
	Category       Category         `gorm:"foreignKey:CategoryID" json:"-"`
	SubCategory    string           `json:"sub_category,omitempty"`
	IsSpecialOffer bool             `gorm:"not null;default:false" json:"is_special_offer"`
	OriginalPrice  *decimal.Decimal `gorm:"type:decimal(10,2)" json:"original_price,omitempty"` // pre-offer price when is_special_offer
	ImageS3Key     *string          `json:"image_s3_key,omitempty"`                             // nullable, S3 key for the item photo
	ImageURL       *string          `gorm:"-" json:"image_url,omitempty"`                       // computed field, presigned URL for the photo
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// TableName specifies the table name for the MenuItem model
func (MenuItem) TableName() string {
	return "menu_items"
}

// BeforeCreate assigns an opaque identifier before the row is written
func (m *MenuItem) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
