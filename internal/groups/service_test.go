package groups

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/groupcart/groupcart-backend/pkg/db/models"
	"github.com/groupcart/groupcart-backend/pkg/enums"
	pkgerrors "github.com/groupcart/groupcart-backend/pkg/errors"
	"github.com/groupcart/groupcart-backend/pkg/logger"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubProductLoader struct {
	rows map[uuid.UUID]*models.Product
}

func (s *stubProductLoader) FindProduct(_ context.Context, id uuid.UUID) (*models.Product, error) {
	if row, ok := s.rows[id]; ok {
		return row, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubUserReader struct {
	rows map[uuid.UUID]models.User
	err  error
}

func (s *stubUserReader) FindUsers(_ context.Context, ids []uuid.UUID) ([]models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.User
	for _, id := range ids {
		if row, ok := s.rows[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

type stubRepo struct {
	groups    map[uuid.UUID]*models.Group
	members   map[uuid.UUID][]models.GroupMember
	requests  map[uuid.UUID]*models.GroupJoinRequest
	createErr error
	memberErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		groups:   map[uuid.UUID]*models.Group{},
		members:  map[uuid.UUID][]models.GroupMember{},
		requests: map[uuid.UUID]*models.GroupJoinRequest{},
	}
}

func (s *stubRepo) WithTx(_ *gorm.DB) Repository { return s }

func (s *stubRepo) CreateGroup(_ context.Context, group *models.Group) (*models.Group, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if group.ID == uuid.Nil {
		group.ID = uuid.New()
	}
	s.groups[group.ID] = group
	return group, nil
}

func (s *stubRepo) FindGroup(_ context.Context, id uuid.UUID) (*models.Group, error) {
	if group, ok := s.groups[id]; ok {
		return group, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) AddMember(_ context.Context, member *models.GroupMember) (*models.GroupMember, error) {
	if s.memberErr != nil {
		return nil, s.memberErr
	}
	for _, row := range s.members[member.GroupID] {
		if row.UserID == member.UserID {
			return nil, errors.New(`duplicate key value violates unique constraint "idx_group_members_pair"`)
		}
	}
	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}
	s.members[member.GroupID] = append(s.members[member.GroupID], *member)
	return member, nil
}

func (s *stubRepo) RemoveMember(_ context.Context, groupID, userID uuid.UUID) error {
	rows := s.members[groupID]
	out := rows[:0]
	for _, row := range rows {
		if row.UserID != userID {
			out = append(out, row)
		}
	}
	s.members[groupID] = out
	return nil
}

func (s *stubRepo) IsMember(_ context.Context, groupID, userID uuid.UUID) (bool, error) {
	for _, row := range s.members[groupID] {
		if row.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubRepo) MemberCount(_ context.Context, groupID uuid.UUID) (int, error) {
	return len(s.members[groupID]), nil
}

func (s *stubRepo) ListMembers(_ context.Context, groupID uuid.UUID) ([]models.GroupMember, error) {
	return s.members[groupID], nil
}

func (s *stubRepo) CreateJoinRequest(_ context.Context, request *models.GroupJoinRequest) (*models.GroupJoinRequest, error) {
	for _, row := range s.requests {
		if row.GroupID == request.GroupID && row.UserID == request.UserID && row.Status == enums.JoinRequestStatusPending {
			return nil, errors.New(`duplicate key value violates unique constraint "idx_join_requests_pending"`)
		}
	}
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	s.requests[request.ID] = request
	return request, nil
}

func (s *stubRepo) FindJoinRequest(_ context.Context, id uuid.UUID) (*models.GroupJoinRequest, error) {
	if row, ok := s.requests[id]; ok {
		return row, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) UpdateJoinRequestStatus(_ context.Context, id uuid.UUID, status enums.JoinRequestStatus, reviewerID uuid.UUID) (bool, error) {
	row, ok := s.requests[id]
	if !ok || row.Status != enums.JoinRequestStatusPending {
		return false, nil
	}
	row.Status = status
	row.ReviewedBy = &reviewerID
	return true, nil
}

func (s *stubRepo) ListPendingJoinRequests(_ context.Context, groupID uuid.UUID) ([]models.GroupJoinRequest, error) {
	var out []models.GroupJoinRequest
	for _, row := range s.requests {
		if row.GroupID == groupID && row.Status == enums.JoinRequestStatusPending {
			out = append(out, *row)
		}
	}
	return out, nil
}

func newGroupService(t *testing.T, repo *stubRepo, products *stubProductLoader) Service {
	t.Helper()
	return newGroupServiceWithUsers(t, repo, products, &stubUserReader{rows: map[uuid.UUID]models.User{}})
}

func newGroupServiceWithUsers(t *testing.T, repo *stubRepo, products *stubProductLoader, users *stubUserReader) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Tx:       stubTxRunner{},
		Repo:     repo,
		Products: products,
		Users:    users,
		Logger:   logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedGroup(repo *stubRepo, creatorID, vendorID uuid.UUID, memberLimit int) *models.Group {
	group := &models.Group{
		ID:          uuid.New(),
		CreatorID:   creatorID,
		VendorID:    vendorID,
		Name:        "bulk tea buyers",
		MemberLimit: memberLimit,
	}
	repo.groups[group.ID] = group
	repo.members[group.ID] = []models.GroupMember{{ID: uuid.New(), GroupID: group.ID, UserID: creatorID}}
	return group
}

func TestCreateGroupEnrollsCreator(t *testing.T) {
	t.Parallel()

	vendorID := uuid.New()
	productID := uuid.New()
	creatorID := uuid.New()
	repo := newStubRepo()
	products := &stubProductLoader{rows: map[uuid.UUID]*models.Product{
		productID: {ID: productID, VendorID: vendorID, IsActive: true},
	}}
	svc := newGroupService(t, repo, products)

	group, err := svc.CreateGroup(context.Background(), creatorID, CreateGroupInput{
		Name:      "  bulk tea buyers  ",
		ProductID: productID,
	})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if group.Name != "bulk tea buyers" {
		t.Fatalf("expected trimmed name, got %q", group.Name)
	}
	if group.VendorID != vendorID {
		t.Fatalf("expected vendor id derived from product")
	}

	isMember, err := repo.IsMember(context.Background(), group.ID, creatorID)
	if err != nil {
		t.Fatalf("is member: %v", err)
	}
	if !isMember {
		t.Fatal("expected creator to be auto-enrolled")
	}
	count, _ := repo.MemberCount(context.Background(), group.ID)
	if count != 1 {
		t.Fatalf("expected member count 1, got %d", count)
	}
}

func TestCreateGroupInactiveProduct(t *testing.T) {
	t.Parallel()

	productID := uuid.New()
	repo := newStubRepo()
	products := &stubProductLoader{rows: map[uuid.UUID]*models.Product{
		productID: {ID: productID, VendorID: uuid.New(), IsActive: false},
	}}
	svc := newGroupService(t, repo, products)

	_, err := svc.CreateGroup(context.Background(), uuid.New(), CreateGroupInput{
		Name:      "stale",
		ProductID: productID,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestRequestJoin(t *testing.T) {
	t.Parallel()

	creatorID := uuid.New()
	repo := newStubRepo()
	group := seedGroup(repo, creatorID, uuid.New(), 0)
	svc := newGroupService(t, repo, &stubProductLoader{})

	userID := uuid.New()

	t.Run("success", func(t *testing.T) {
		request, err := svc.RequestJoin(context.Background(), group.ID, userID, nil)
		if err != nil {
			t.Fatalf("request join: %v", err)
		}
		if request.Status != enums.JoinRequestStatusPending {
			t.Fatalf("expected pending status, got %s", request.Status)
		}
	})

	t.Run("duplicatePending", func(t *testing.T) {
		_, err := svc.RequestJoin(context.Background(), group.ID, userID, nil)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
			t.Fatalf("expected conflict for duplicate pending request, got %v", err)
		}
	})

	t.Run("alreadyMember", func(t *testing.T) {
		_, err := svc.RequestJoin(context.Background(), group.ID, creatorID, nil)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
			t.Fatalf("expected conflict for existing member, got %v", err)
		}
	})

	t.Run("unknownGroup", func(t *testing.T) {
		_, err := svc.RequestJoin(context.Background(), uuid.New(), userID, nil)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

func TestRequestJoinGroupFull(t *testing.T) {
	t.Parallel()

	creatorID := uuid.New()
	repo := newStubRepo()
	group := seedGroup(repo, creatorID, uuid.New(), 1)
	svc := newGroupService(t, repo, &stubProductLoader{})

	_, err := svc.RequestJoin(context.Background(), group.ID, uuid.New(), nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for full group, got %v", err)
	}
}

func TestReviewJoinRequest(t *testing.T) {
	t.Parallel()

	creatorID := uuid.New()
	applicantID := uuid.New()
	repo := newStubRepo()
	group := seedGroup(repo, creatorID, uuid.New(), 0)
	svc := newGroupService(t, repo, &stubProductLoader{})

	request, err := svc.RequestJoin(context.Background(), group.ID, applicantID, nil)
	if err != nil {
		t.Fatalf("request join: %v", err)
	}

	t.Run("nonCreatorForbidden", func(t *testing.T) {
		_, err := svc.ReviewJoinRequest(context.Background(), request.ID, uuid.New(), true)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})

	t.Run("approveAddsMember", func(t *testing.T) {
		reviewed, err := svc.ReviewJoinRequest(context.Background(), request.ID, creatorID, true)
		if err != nil {
			t.Fatalf("review join request: %v", err)
		}
		if reviewed.Status != enums.JoinRequestStatusApproved {
			t.Fatalf("expected approved status, got %s", reviewed.Status)
		}
		isMember, _ := repo.IsMember(context.Background(), group.ID, applicantID)
		if !isMember {
			t.Fatal("expected applicant enrolled after approval")
		}
	})

	t.Run("secondReviewConflicts", func(t *testing.T) {
		_, err := svc.ReviewJoinRequest(context.Background(), request.ID, creatorID, false)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("expected state conflict, got %v", err)
		}
	})
}

func TestReviewJoinRequestReject(t *testing.T) {
	t.Parallel()

	creatorID := uuid.New()
	applicantID := uuid.New()
	repo := newStubRepo()
	group := seedGroup(repo, creatorID, uuid.New(), 0)
	svc := newGroupService(t, repo, &stubProductLoader{})

	request, err := svc.RequestJoin(context.Background(), group.ID, applicantID, nil)
	if err != nil {
		t.Fatalf("request join: %v", err)
	}

	reviewed, err := svc.ReviewJoinRequest(context.Background(), request.ID, creatorID, false)
	if err != nil {
		t.Fatalf("review join request: %v", err)
	}
	if reviewed.Status != enums.JoinRequestStatusRejected {
		t.Fatalf("expected rejected status, got %s", reviewed.Status)
	}
	isMember, _ := repo.IsMember(context.Background(), group.ID, applicantID)
	if isMember {
		t.Fatal("rejected applicant must not be enrolled")
	}

	// a fresh request after rejection is allowed
	if _, err := svc.RequestJoin(context.Background(), group.ID, applicantID, nil); err != nil {
		t.Fatalf("fresh request after rejection: %v", err)
	}
}

func TestLeaveGroup(t *testing.T) {
	t.Parallel()

	creatorID := uuid.New()
	memberID := uuid.New()
	repo := newStubRepo()
	group := seedGroup(repo, creatorID, uuid.New(), 0)
	repo.members[group.ID] = append(repo.members[group.ID], models.GroupMember{
		ID: uuid.New(), GroupID: group.ID, UserID: memberID,
	})
	svc := newGroupService(t, repo, &stubProductLoader{})

	t.Run("creatorCannotLeave", func(t *testing.T) {
		err := svc.LeaveGroup(context.Background(), group.ID, creatorID)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("expected state conflict, got %v", err)
		}
	})

	t.Run("memberLeaves", func(t *testing.T) {
		if err := svc.LeaveGroup(context.Background(), group.ID, memberID); err != nil {
			t.Fatalf("leave group: %v", err)
		}
		count, _ := repo.MemberCount(context.Background(), group.ID)
		if count != 1 {
			t.Fatalf("expected member count 1 after leave, got %d", count)
		}
	})

	t.Run("nonMember", func(t *testing.T) {
		err := svc.LeaveGroup(context.Background(), group.ID, uuid.New())
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

func TestMemberCountReflectsApprovals(t *testing.T) {
	t.Parallel()

	creatorID := uuid.New()
	repo := newStubRepo()
	group := seedGroup(repo, creatorID, uuid.New(), 0)
	svc := newGroupService(t, repo, &stubProductLoader{})

	for i := 0; i < 3; i++ {
		request, err := svc.RequestJoin(context.Background(), group.ID, uuid.New(), nil)
		if err != nil {
			t.Fatalf("request join: %v", err)
		}
		if _, err := svc.ReviewJoinRequest(context.Background(), request.ID, creatorID, true); err != nil {
			t.Fatalf("review join request: %v", err)
		}
	}

	count, err := svc.MemberCount(context.Background(), group.ID)
	if err != nil {
		t.Fatalf("member count: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4 members (creator + 3), got %d", count)
	}
}

func TestListMembersJoinsAccounts(t *testing.T) {
	t.Parallel()

	creatorID := uuid.New()
	memberID := uuid.New()
	repo := newStubRepo()
	group := seedGroup(repo, creatorID, uuid.New(), 0)
	repo.members[group.ID] = append(repo.members[group.ID], models.GroupMember{
		ID:      uuid.New(),
		GroupID: group.ID,
		UserID:  memberID,
	})

	users := &stubUserReader{rows: map[uuid.UUID]models.User{
		creatorID: {ID: creatorID, DisplayName: "Priya"},
		memberID:  {ID: memberID, DisplayName: "Marcus"},
	}}
	svc := newGroupServiceWithUsers(t, repo, &stubProductLoader{}, users)

	details, err := svc.ListMembers(context.Background(), group.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(details) != 2 {
		t.Fatalf("expected 2 members, got %d", len(details))
	}
	if details[0].UserID != creatorID || details[0].DisplayName != "Priya" {
		t.Fatalf("unexpected first member: %+v", details[0])
	}
	if details[1].UserID != memberID || details[1].DisplayName != "Marcus" {
		t.Fatalf("unexpected second member: %+v", details[1])
	}
}

func TestListMembersGroupNotFound(t *testing.T) {
	t.Parallel()

	svc := newGroupService(t, newStubRepo(), &stubProductLoader{})

	_, err := svc.ListMembers(context.Background(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}
