package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Product is a vendor listing. Price is immutable once a paid line item
// references the product; the service never rewrites price in place.
type Product struct {
	ID            uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID      uuid.UUID      `gorm:"column:vendor_id;type:uuid;not null"`
	Name          string         `gorm:"column:name;not null"`
	Description   *string        `gorm:"column:description"`
	PriceCents    int            `gorm:"column:price_cents;not null"`
	ImageURLs     pq.StringArray `gorm:"column:image_urls;type:text[];not null;default:ARRAY[]::text[]"`
	IsActive      bool           `gorm:"column:is_active;not null;default:true"`
	DiscountTiers []DiscountTier `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
