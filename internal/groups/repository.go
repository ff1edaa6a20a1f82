package groups

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/groupcart/groupcart-backend/pkg/db/models"
	"github.com/groupcart/groupcart-backend/pkg/enums"
)

// Repository exposes group, membership, and join-request persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateGroup(ctx context.Context, group *models.Group) (*models.Group, error)
	FindGroup(ctx context.Context, id uuid.UUID) (*models.Group, error)
	AddMember(ctx context.Context, member *models.GroupMember) (*models.GroupMember, error)
	RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error
	IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
	MemberCount(ctx context.Context, groupID uuid.UUID) (int, error)
	ListMembers(ctx context.Context, groupID uuid.UUID) ([]models.GroupMember, error)
	CreateJoinRequest(ctx context.Context, request *models.GroupJoinRequest) (*models.GroupJoinRequest, error)
	FindJoinRequest(ctx context.Context, id uuid.UUID) (*models.GroupJoinRequest, error)
	UpdateJoinRequestStatus(ctx context.Context, id uuid.UUID, status enums.JoinRequestStatus, reviewerID uuid.UUID) (bool, error)
	ListPendingJoinRequests(ctx context.Context, groupID uuid.UUID) ([]models.GroupJoinRequest, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

// CreateGroup inserts a group row.
func (r *repository) CreateGroup(ctx context.Context, group *models.Group) (*models.Group, error) {
	if err := r.db.WithContext(ctx).Create(group).Error; err != nil {
		return nil, err
	}
	return group, nil
}

// FindGroup loads a group by ID.
func (r *repository) FindGroup(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).First(&group, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// AddMember inserts a membership row. The unique pair index rejects
// duplicates at the DB layer.
func (r *repository) AddMember(ctx context.Context, member *models.GroupMember) (*models.GroupMember, error) {
	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		return nil, err
	}
	return member, nil
}

// RemoveMember deletes the (group, user) membership pair.
func (r *repository) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.GroupMember{}).
		Error
}

// IsMember reports whether the user belongs to the group.
func (r *repository) IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).
		Error
	return count > 0, err
}

// MemberCount returns the number of members in the group.
func (r *repository) MemberCount(ctx context.Context, groupID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GroupMember{}).
		Where("group_id = ?", groupID).
		Count(&count).
		Error
	return int(count), err
}

// ListMembers returns all membership rows for the group.
func (r *repository) ListMembers(ctx context.Context, groupID uuid.UUID) ([]models.GroupMember, error) {
	var rows []models.GroupMember
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("joined_at ASC").
		Find(&rows).
		Error
	return rows, err
}

// CreateJoinRequest inserts a join request row. The partial unique
// index rejects a second pending request for the same pair.
func (r *repository) CreateJoinRequest(ctx context.Context, request *models.GroupJoinRequest) (*models.GroupJoinRequest, error) {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

// FindJoinRequest loads a join request by ID.
func (r *repository) FindJoinRequest(ctx context.Context, id uuid.UUID) (*models.GroupJoinRequest, error) {
	var request models.GroupJoinRequest
	if err := r.db.WithContext(ctx).First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// UpdateJoinRequestStatus flips a pending request to a terminal status.
// The status guard keeps the write monotonic: an already-reviewed
// request is left untouched and reported via the returned bool.
func (r *repository) UpdateJoinRequestStatus(ctx context.Context, id uuid.UUID, status enums.JoinRequestStatus, reviewerID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.GroupJoinRequest{}).
		Where("id = ? AND status = ?", id, enums.JoinRequestStatusPending).
		Updates(map[string]any{
			"status":      status,
			"reviewed_by": reviewerID,
			"reviewed_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListPendingJoinRequests returns open requests for the group.
func (r *repository) ListPendingJoinRequests(ctx context.Context, groupID uuid.UUID) ([]models.GroupJoinRequest, error) {
	var rows []models.GroupJoinRequest
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND status = ?", groupID, enums.JoinRequestStatusPending).
		Order("created_at ASC").
		Find(&rows).
		Error
	return rows, err
}
