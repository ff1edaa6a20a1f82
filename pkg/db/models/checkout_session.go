package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/groupcart/groupcart-backend/pkg/enums"
)

// CheckoutSession is a point-in-time snapshot of a group's collective
// order. DiscountPercent and MemberCount are stamped at open time and
// never recomputed; later membership changes affect only new sessions.
type CheckoutSession struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GroupID         uuid.UUID           `gorm:"column:group_id;type:uuid;not null"`
	AdminID         uuid.UUID           `gorm:"column:admin_id;type:uuid;not null"`
	Status          enums.SessionStatus `gorm:"column:status;not null;default:'pending'"`
	DiscountPercent int                 `gorm:"column:discount_percent;not null"`
	MemberCount     int                 `gorm:"column:member_count;not null"`
	TotalCents      int                 `gorm:"column:total_cents;not null"`
	Currency        enums.Currency      `gorm:"column:currency;not null;default:'usd'"`
	Items           []CheckoutLineItem  `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	ExpiresAt       time.Time           `gorm:"column:expires_at;not null"`
	CompletedAt     *time.Time          `gorm:"column:completed_at"`
	CancelledAt     *time.Time          `gorm:"column:cancelled_at"`
}

func (CheckoutSession) TableName() string { return "group_checkout_sessions" }
