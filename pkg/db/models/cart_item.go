package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is a member's standing cart line. Checkout copies cart rows
// into session line items; it never locks or mutates them.
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	VendorID  uuid.UUID `gorm:"column:vendor_id;type:uuid;not null"`
	Quantity  int       `gorm:"column:quantity;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
