package models

import (
	"time"

	"github.com/google/uuid"
)

// CheckoutNotification tells a member their session has line items
// awaiting payment. One row per (session, user); repeat notify calls
// are no-ops against the unique pair.
type CheckoutNotification struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID uuid.UUID  `gorm:"column:session_id;type:uuid;not null;uniqueIndex:idx_checkout_notifications_pair"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_checkout_notifications_pair"`
	ReadAt    *time.Time `gorm:"column:read_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (CheckoutNotification) TableName() string { return "group_checkout_notifications" }
