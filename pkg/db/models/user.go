package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/groupcart/groupcart-backend/pkg/enums"
)

// User is the minimal account record the checkout workflow consults.
// Registration and profile editing live outside this service.
type User struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email       string         `gorm:"column:email;not null;uniqueIndex"`
	DisplayName string         `gorm:"column:display_name;not null"`
	Role        enums.UserRole `gorm:"column:role;not null;default:'shopper'"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
}
