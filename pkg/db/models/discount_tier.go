package models

import (
	"time"

	"github.com/google/uuid"
)

// DiscountTier is one (members-required, discount%) rule for a product.
// The highest members_required tier satisfied by the group's member
// count wins; ties break toward the larger discount.
type DiscountTier struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID       uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_tiers_product_members"`
	TierNumber      int       `gorm:"column:tier_number;not null"`
	MembersRequired int       `gorm:"column:members_required;not null;uniqueIndex:idx_tiers_product_members"`
	DiscountPercent int       `gorm:"column:discount_percent;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (DiscountTier) TableName() string { return "product_discount_tiers" }
