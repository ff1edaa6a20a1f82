package models

import (
	"time"

	"github.com/google/uuid"
)

// Group is a set of users pooling for a volume discount. VendorID is
// denormalized from the associated product at creation time and scopes
// which cart items a checkout session may pull in.
type Group struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CreatorID   uuid.UUID  `gorm:"column:creator_id;type:uuid;not null"`
	ProductID   *uuid.UUID `gorm:"column:product_id;type:uuid"`
	VendorID    uuid.UUID  `gorm:"column:vendor_id;type:uuid;not null"`
	Name        string     `gorm:"column:name;not null"`
	Description string     `gorm:"column:description;not null;default:''"`
	IsPrivate   bool       `gorm:"column:is_private;not null;default:false"`
	MemberLimit int        `gorm:"column:member_limit;not null;default:0"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
