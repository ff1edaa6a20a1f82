package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/groupcart/groupcart-backend/pkg/enums"
	"github.com/groupcart/groupcart-backend/pkg/types"
)

// CheckoutLineItem is one member's product line inside a session.
// UnitPriceCents already reflects the discount stamped on the parent
// session; TotalCents = UnitPriceCents * Quantity, always.
type CheckoutLineItem struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID       uuid.UUID           `gorm:"column:session_id;type:uuid;not null"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	ProductID       uuid.UUID           `gorm:"column:product_id;type:uuid;not null"`
	Quantity        int                 `gorm:"column:quantity;not null"`
	UnitPriceCents  int                 `gorm:"column:unit_price_cents;not null"`
	TotalCents      int                 `gorm:"column:total_cents;not null"`
	ShippingAddress *types.Address      `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;not null;default:'pending'"`
	PaymentIntentID *string             `gorm:"column:payment_intent_id"`
	FailureReason   *string             `gorm:"column:failure_reason"`
	PaidAt          *time.Time          `gorm:"column:paid_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (CheckoutLineItem) TableName() string { return "group_checkout_items" }
