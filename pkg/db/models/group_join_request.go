package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/groupcart/groupcart-backend/pkg/enums"
)

// GroupJoinRequest records a user's ask to join a group. Terminal once
// approved or rejected; re-joining requires a fresh request.
type GroupJoinRequest struct {
	ID         uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GroupID    uuid.UUID               `gorm:"column:group_id;type:uuid;not null"`
	UserID     uuid.UUID               `gorm:"column:user_id;type:uuid;not null"`
	Message    *string                 `gorm:"column:message"`
	Status     enums.JoinRequestStatus `gorm:"column:status;not null;default:'pending'"`
	ReviewedBy *uuid.UUID              `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt *time.Time              `gorm:"column:reviewed_at"`
	CreatedAt  time.Time               `gorm:"column:created_at;autoCreateTime"`
}
