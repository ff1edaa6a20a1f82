package groups

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/groupcart/groupcart-backend/pkg/db"
	"github.com/groupcart/groupcart-backend/pkg/db/models"
	"github.com/groupcart/groupcart-backend/pkg/enums"
	pkgerrors "github.com/groupcart/groupcart-backend/pkg/errors"
	"github.com/groupcart/groupcart-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type userReader interface {
	FindUsers(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
}

// Service exposes group lifecycle operations.
type Service interface {
	CreateGroup(ctx context.Context, creatorID uuid.UUID, input CreateGroupInput) (*models.Group, error)
	GetGroup(ctx context.Context, groupID uuid.UUID) (*GroupDetail, error)
	RequestJoin(ctx context.Context, groupID, userID uuid.UUID, message *string) (*models.GroupJoinRequest, error)
	ReviewJoinRequest(ctx context.Context, requestID, reviewerID uuid.UUID, approve bool) (*models.GroupJoinRequest, error)
	ListMembers(ctx context.Context, groupID uuid.UUID) ([]MemberDetail, error)
	MemberCount(ctx context.Context, groupID uuid.UUID) (int, error)
	LeaveGroup(ctx context.Context, groupID, userID uuid.UUID) error
}

// CreateGroupInput holds the validated payload to create a group.
type CreateGroupInput struct {
	Name        string
	Description string
	ProductID   uuid.UUID
	IsPrivate   bool
	MemberLimit int
}

// GroupDetail pairs a group with its live member count.
type GroupDetail struct {
	Group       *models.Group
	MemberCount int
}

// MemberDetail is one membership row joined with its account record.
type MemberDetail struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	JoinedAt    time.Time `json:"joined_at"`
}

// ServiceParams wires service dependencies.
type ServiceParams struct {
	Tx       txRunner
	Repo     Repository
	Products productLoader
	Users    userReader
	Logger   *logger.Logger
}

type service struct {
	tx       txRunner
	repo     Repository
	products productLoader
	users    userReader
	logg     *logger.Logger
}

// NewService constructs a groups service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("group repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user reader required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:       params.Tx,
		repo:     params.Repo,
		products: params.Products,
		users:    params.Users,
		logg:     params.Logger,
	}, nil
}

// CreateGroup creates the group and enrolls the creator as its first
// member in one transaction. The vendor scope is denormalized from the
// target product at creation time.
func (s *service) CreateGroup(ctx context.Context, creatorID uuid.UUID, input CreateGroupInput) (*models.Group, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group name required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.MemberLimit < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member limit cannot be negative")
	}

	product, err := s.products.FindProduct(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "product is not active")
	}

	productID := input.ProductID
	group := &models.Group{
		CreatorID:   creatorID,
		ProductID:   &productID,
		VendorID:    product.VendorID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		IsPrivate:   input.IsPrivate,
		MemberLimit: input.MemberLimit,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		created, err := repo.CreateGroup(ctx, group)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating group")
		}
		if _, err := repo.AddMember(ctx, &models.GroupMember{
			GroupID: created.ID,
			UserID:  creatorID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enrolling creator")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithGroupID(ctx, group.ID.String())
	s.logg.Info(ctx, "group created")
	return group, nil
}

// GetGroup returns the group with its current member count.
func (s *service) GetGroup(ctx context.Context, groupID uuid.UUID) (*GroupDetail, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.MemberCount(ctx, groupID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "counting members")
	}
	return &GroupDetail{Group: group, MemberCount: count}, nil
}

// RequestJoin records a user's ask to join. Existing membership or an
// open request for the same pair is a conflict.
func (s *service) RequestJoin(ctx context.Context, groupID, userID uuid.UUID, message *string) (*models.GroupJoinRequest, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	isMember, err := s.repo.IsMember(ctx, groupID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking membership")
	}
	if isMember {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "already a member of this group")
	}

	if group.MemberLimit > 0 {
		count, err := s.repo.MemberCount(ctx, groupID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "counting members")
		}
		if count >= group.MemberLimit {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "group is full")
		}
	}

	request := &models.GroupJoinRequest{
		GroupID: groupID,
		UserID:  userID,
		Message: message,
		Status:  enums.JoinRequestStatusPending,
	}
	created, err := s.repo.CreateJoinRequest(ctx, request)
	if err != nil {
		if db.IsUniqueViolation(err, "idx_join_requests_pending") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a join request is already pending")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating join request")
	}
	return created, nil
}

// ReviewJoinRequest approves or rejects a pending request. The status
// flip and (on approval) membership insert happen in one transaction,
// so the member count can never drift from the request ledger.
func (s *service) ReviewJoinRequest(ctx context.Context, requestID, reviewerID uuid.UUID, approve bool) (*models.GroupJoinRequest, error) {
	request, err := s.repo.FindJoinRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "join request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading join request")
	}

	group, err := s.loadGroup(ctx, request.GroupID)
	if err != nil {
		return nil, err
	}
	if group.CreatorID != reviewerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the group creator can review join requests")
	}
	if request.Status != enums.JoinRequestStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "join request already reviewed")
	}

	status := enums.JoinRequestStatusRejected
	if approve {
		status = enums.JoinRequestStatusApproved
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		updated, err := repo.UpdateJoinRequestStatus(ctx, requestID, status, reviewerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating join request")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "join request already reviewed")
		}

		if !approve {
			return nil
		}

		if group.MemberLimit > 0 {
			count, err := repo.MemberCount(ctx, request.GroupID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "counting members")
			}
			if count >= group.MemberLimit {
				return pkgerrors.New(pkgerrors.CodeConflict, "group is full")
			}
		}

		if _, err := repo.AddMember(ctx, &models.GroupMember{
			GroupID: request.GroupID,
			UserID:  request.UserID,
		}); err != nil {
			if db.IsUniqueViolation(err, "idx_group_members_pair") {
				return pkgerrors.New(pkgerrors.CodeConflict, "user is already a member")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adding member")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	request.Status = status
	request.ReviewedBy = &reviewerID
	return request, nil
}

// ListMembers returns the group's roster in join order, each row
// joined with the member's account record.
func (s *service) ListMembers(ctx context.Context, groupID uuid.UUID) ([]MemberDetail, error) {
	if _, err := s.loadGroup(ctx, groupID); err != nil {
		return nil, err
	}

	members, err := s.repo.ListMembers(ctx, groupID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing members")
	}
	if len(members) == 0 {
		return []MemberDetail{}, nil
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, member := range members {
		ids = append(ids, member.UserID)
	}
	accounts, err := s.users.FindUsers(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading member accounts")
	}
	names := make(map[uuid.UUID]string, len(accounts))
	for _, account := range accounts {
		names[account.ID] = account.DisplayName
	}

	details := make([]MemberDetail, 0, len(members))
	for _, member := range members {
		details = append(details, MemberDetail{
			UserID:      member.UserID,
			DisplayName: names[member.UserID],
			JoinedAt:    member.JoinedAt,
		})
	}
	return details, nil
}

// MemberCount returns the live member count for a group.
func (s *service) MemberCount(ctx context.Context, groupID uuid.UUID) (int, error) {
	if _, err := s.loadGroup(ctx, groupID); err != nil {
		return 0, err
	}
	count, err := s.repo.MemberCount(ctx, groupID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "counting members")
	}
	return count, nil
}

// LeaveGroup removes the user's membership. The creator cannot leave
// their own group.
func (s *service) LeaveGroup(ctx context.Context, groupID, userID uuid.UUID) error {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.CreatorID == userID {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "the creator cannot leave their own group")
	}

	isMember, err := s.repo.IsMember(ctx, groupID, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking membership")
	}
	if !isMember {
		return pkgerrors.New(pkgerrors.CodeNotFound, "not a member of this group")
	}

	if err := s.repo.RemoveMember(ctx, groupID, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "removing member")
	}
	return nil
}

func (s *service) loadGroup(ctx context.Context, groupID uuid.UUID) (*models.Group, error) {
	group, err := s.repo.FindGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "group not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading group")
	}
	return group, nil
}
