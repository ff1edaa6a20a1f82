package models

import (
	"time"

	"github.com/google/uuid"
)

// GroupMember is the (group, user) membership pair. The row count per
// group at session-open time is the sole input to discount resolution.
type GroupMember struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GroupID  uuid.UUID `gorm:"column:group_id;type:uuid;not null;uniqueIndex:idx_group_members_pair"`
	UserID   uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_group_members_pair"`
	JoinedAt time.Time `gorm:"column:joined_at;autoCreateTime"`
}
