package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/groupcart/groupcart-backend/internal/carts"
	"github.com/groupcart/groupcart-backend/internal/payments"
	"github.com/groupcart/groupcart-backend/pkg/db"
	"github.com/groupcart/groupcart-backend/pkg/db/models"
	"github.com/groupcart/groupcart-backend/pkg/enums"
	pkgerrors "github.com/groupcart/groupcart-backend/pkg/errors"
	"github.com/groupcart/groupcart-backend/pkg/logger"
	"github.com/groupcart/groupcart-backend/pkg/money"
	"github.com/groupcart/groupcart-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type groupReader interface {
	FindGroup(ctx context.Context, id uuid.UUID) (*models.Group, error)
	ListMembers(ctx context.Context, groupID uuid.UUID) ([]models.GroupMember, error)
	IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
}

type productReader interface {
	FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

type discountResolver interface {
	ResolveDiscount(ctx context.Context, productID uuid.UUID, memberCount int) (int, error)
}

// Service orchestrates the group checkout workflow.
type Service interface {
	OpenSession(ctx context.Context, groupID, adminID uuid.UUID) (*models.CheckoutSession, error)
	GetSession(ctx context.Context, sessionID, actorID uuid.UUID) (*models.CheckoutSession, error)
	NotifyMembers(ctx context.Context, sessionID, actorID uuid.UUID) (int, error)
	SetShippingAddress(ctx context.Context, itemID, userID uuid.UUID, address types.Address) error
	InitiatePayment(ctx context.Context, itemID, userID uuid.UUID) (*payments.IntentResult, error)
	CancelSession(ctx context.Context, sessionID, actorID uuid.UUID) error
	ListNotifications(ctx context.Context, userID uuid.UUID) ([]models.CheckoutNotification, error)
	MarkNotificationRead(ctx context.Context, notificationID, userID uuid.UUID) error

	// Settlement entry points, driven by the payment webhook. The line
	// item id comes from the intent metadata; uuid.Nil falls back to the
	// stored intent reference.
	ApplyPaymentSuccess(ctx context.Context, lineItemID uuid.UUID, intentID string, paidAt time.Time) error
	ApplyPaymentFailure(ctx context.Context, lineItemID uuid.UUID, intentID, reason string) error
}

// ServiceParams wires service dependencies.
type ServiceParams struct {
	Tx            txRunner
	Repo          Repository
	Notifications NotificationRepository
	Carts         carts.Repository
	Groups        groupReader
	Products      productReader
	Discounts     discountResolver
	Gateway       payments.Gateway
	SessionTTL    time.Duration
	Logger        *logger.Logger
}

type service struct {
	tx         txRunner
	repo       Repository
	notifs     NotificationRepository
	carts      carts.Repository
	groups     groupReader
	products   productReader
	discounts  discountResolver
	gateway    payments.Gateway
	sessionTTL time.Duration
	logg       *logger.Logger
	now        func() time.Time
}

// NewService constructs a checkout service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notification repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Groups == nil {
		return nil, fmt.Errorf("group reader required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if params.Discounts == nil {
		return nil, fmt.Errorf("discount resolver required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	ttl := params.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &service{
		tx:         params.Tx,
		repo:       params.Repo,
		notifs:     params.Notifications,
		carts:      params.Carts,
		groups:     params.Groups,
		products:   params.Products,
		discounts:  params.Discounts,
		gateway:    params.Gateway,
		sessionTTL: ttl,
		logg:       params.Logger,
		now:        time.Now,
	}, nil
}

// OpenSession snapshots the group's member carts into one checkout
// session. The discount is resolved exactly once here and stamped on
// the session; later membership changes never touch an open session.
func (s *service) OpenSession(ctx context.Context, groupID, adminID uuid.UUID) (*models.CheckoutSession, error) {
	group, err := s.loadGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.CreatorID != adminID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the group creator can open a checkout session")
	}
	if group.ProductID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "group has no target product")
	}

	if _, err := s.repo.FindActiveSessionByGroup(ctx, groupID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a checkout session is already open for this group")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking for open session")
	}

	var sessionID uuid.UUID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cartRepo := s.carts.WithTx(tx)

		members, err := s.groups.ListMembers(ctx, groupID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing members")
		}
		if len(members) == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "group has no members")
		}
		memberIDs := make([]uuid.UUID, len(members))
		for i, member := range members {
			memberIDs[i] = member.UserID
		}

		discount, err := s.discounts.ResolveDiscount(ctx, *group.ProductID, len(members))
		if err != nil {
			return err
		}

		cartRows, err := cartRepo.ListByUsersAndVendor(ctx, memberIDs, group.VendorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading member carts")
		}
		if len(cartRows) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "no cart items to check out")
		}

		productsByID, err := s.loadProducts(ctx, cartRows)
		if err != nil {
			return err
		}

		session := &models.CheckoutSession{
			GroupID:         groupID,
			AdminID:         adminID,
			Status:          enums.SessionStatusPending,
			DiscountPercent: discount,
			MemberCount:     len(members),
			Currency:        enums.CurrencyUSD,
			ExpiresAt:       s.now().Add(s.sessionTTL),
		}

		items := make([]models.CheckoutLineItem, 0, len(cartRows))
		total := 0
		for _, row := range cartRows {
			product, ok := productsByID[row.ProductID]
			if !ok || !product.IsActive {
				continue
			}
			unitPrice, err := money.DiscountedUnitPrice(product.PriceCents, discount)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "pricing line item")
			}
			lineTotal, err := money.LineTotal(unitPrice, row.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "totaling line item")
			}
			items = append(items, models.CheckoutLineItem{
				UserID:         row.UserID,
				ProductID:      row.ProductID,
				Quantity:       row.Quantity,
				UnitPriceCents: unitPrice,
				TotalCents:     lineTotal,
				PaymentStatus:  enums.PaymentStatusPending,
			})
			total += lineTotal
		}
		if len(items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "no purchasable cart items to check out")
		}
		session.TotalCents = total

		created, err := repo.CreateSession(ctx, session)
		if err != nil {
			if db.IsUniqueViolation(err, "idx_checkout_sessions_active") {
				return pkgerrors.New(pkgerrors.CodeConflict, "a checkout session is already open for this group")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating session")
		}
		for i := range items {
			items[i].SessionID = created.ID
		}
		if err := repo.CreateLineItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating line items")
		}
		sessionID = created.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithSessionID(s.logg.WithGroupID(ctx, groupID.String()), sessionID.String())
	s.logg.Info(ctx, "checkout session opened")

	return s.loadSession(ctx, sessionID)
}

// GetSession returns the session snapshot to any member of its group.
func (s *service) GetSession(ctx context.Context, sessionID, actorID uuid.UUID) (*models.CheckoutSession, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	isMember, err := s.groups.IsMember(ctx, session.GroupID, actorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking membership")
	}
	if !isMember {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this session's group")
	}
	return session, nil
}

// NotifyMembers creates one notification per line-item owner. The
// unique (session, user) pair makes repeat calls idempotent; the
// return value is the number of members newly notified.
func (s *service) NotifyMembers(ctx context.Context, sessionID, actorID uuid.UUID) (int, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if session.AdminID != actorID {
		return 0, pkgerrors.New(pkgerrors.CodeForbidden, "only the session admin can notify members")
	}
	if session.Status.IsTerminal() {
		return 0, pkgerrors.New(pkgerrors.CodeStateConflict, "session is closed")
	}

	seen := map[uuid.UUID]struct{}{}
	rows := make([]models.CheckoutNotification, 0, len(session.Items))
	for _, item := range session.Items {
		if _, ok := seen[item.UserID]; ok {
			continue
		}
		seen[item.UserID] = struct{}{}
		rows = append(rows, models.CheckoutNotification{
			SessionID: sessionID,
			UserID:    item.UserID,
		})
	}

	created, err := s.notifs.CreateNotifications(ctx, rows)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating notifications")
	}
	return created, nil
}

// SetShippingAddress stores the owner's shipping address on their line
// item. Required before payment can be initiated.
func (s *service) SetShippingAddress(ctx context.Context, itemID, userID uuid.UUID, address types.Address) error {
	if !address.IsComplete() {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete")
	}

	item, session, err := s.loadItemWithSession(ctx, itemID)
	if err != nil {
		return err
	}
	if item.UserID != userID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the line item owner can set its address")
	}
	if session.Status.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "session is closed")
	}
	if item.PaymentStatus == enums.PaymentStatusPaid {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "line item already paid")
	}

	if err := s.repo.UpdateLineItemAddress(ctx, itemID, address); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving address")
	}
	return nil
}

// InitiatePayment creates a payment intent for the owner's line item.
// The processor call happens outside any DB transaction; a processor
// failure leaves the item payable.
func (s *service) InitiatePayment(ctx context.Context, itemID, userID uuid.UUID) (*payments.IntentResult, error) {
	item, session, err := s.loadItemWithSession(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the line item owner can pay for it")
	}
	if session.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "session is closed")
	}
	if s.now().After(session.ExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "session has expired")
	}
	if item.PaymentStatus == enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "line item already paid")
	}
	if item.ShippingAddress == nil || !item.ShippingAddress.IsComplete() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required before payment")
	}

	result, err := s.gateway.CreateIntent(ctx, payments.IntentInput{
		AmountCents: item.TotalCents,
		Currency:    session.Currency,
		LineItemID:  item.ID,
		UserID:      item.UserID,
		GroupID:     session.GroupID,
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.SetLineItemIntent(ctx, itemID, result.PaymentIntentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storing intent reference")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "line item is no longer payable")
	}
	return result, nil
}

// CancelSession closes a non-terminal session. Paid line items keep
// their settled state; refunds are handled out of band.
func (s *service) CancelSession(ctx context.Context, sessionID, actorID uuid.UUID) error {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.AdminID != actorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the session admin can cancel it")
	}

	updated, err := s.repo.AdvanceSessionStatus(ctx, sessionID, []enums.SessionStatus{
		enums.SessionStatusPending,
		enums.SessionStatusMemberPayments,
	}, enums.SessionStatusCancelled)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancelling session")
	}
	if !updated {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "session is already closed")
	}

	s.logg.Info(s.logg.WithSessionID(ctx, sessionID.String()), "checkout session cancelled")
	return nil
}

// ListNotifications returns the user's checkout notifications.
func (s *service) ListNotifications(ctx context.Context, userID uuid.UUID) ([]models.CheckoutNotification, error) {
	rows, err := s.notifs.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing notifications")
	}
	return rows, nil
}

// MarkNotificationRead marks the user's notification as read.
func (s *service) MarkNotificationRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	updated, err := s.notifs.MarkRead(ctx, notificationID, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking notification read")
	}
	if !updated {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

// ApplyPaymentSuccess settles a line item and advances the session.
// The item is resolved from the intent metadata, so a success for an
// earlier intent still lands after the member re-initiated payment and
// the stored reference moved on; the confirming intent is recorded at
// settle time. Safe under duplicate delivery: the paid flip is
// conditional and a second call finds nothing to update.
func (s *service) ApplyPaymentSuccess(ctx context.Context, lineItemID uuid.UUID, intentID string, paidAt time.Time) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := s.resolveSettlementItem(ctx, repo, lineItemID, intentID)
		if err != nil {
			return err
		}

		updated, err := repo.SettleLineItemPaid(ctx, item.ID, intentID, paidAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking line item paid")
		}
		if !updated {
			// replayed event, already settled
			return nil
		}

		if _, err := repo.AdvanceSessionStatus(ctx, item.SessionID, []enums.SessionStatus{
			enums.SessionStatusPending,
		}, enums.SessionStatusMemberPayments); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advancing session")
		}

		unpaid, err := repo.CountUnpaidItems(ctx, item.SessionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "counting unpaid items")
		}
		if unpaid == 0 {
			if _, err := repo.AdvanceSessionStatus(ctx, item.SessionID, []enums.SessionStatus{
				enums.SessionStatusPending,
				enums.SessionStatusMemberPayments,
			}, enums.SessionStatusCompleted); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "completing session")
			}
			s.logg.Info(s.logg.WithSessionID(ctx, item.SessionID.String()), "checkout session completed")
		}
		return nil
	})
}

// ApplyPaymentFailure records a failed charge. A paid item is never
// demoted: success wins over out-of-order failure events. A failure for
// an intent the item no longer references is ignored so it cannot kill
// a newer attempt in flight.
func (s *service) ApplyPaymentFailure(ctx context.Context, lineItemID uuid.UUID, intentID, reason string) error {
	item, err := s.resolveSettlementItem(ctx, s.repo, lineItemID, intentID)
	if err != nil {
		return err
	}
	if item.PaymentIntentID != nil && *item.PaymentIntentID != intentID {
		return nil
	}
	if _, err := s.repo.SettleLineItemFailed(ctx, item.ID, reason); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking line item failed")
	}
	// a false update means the item is already paid or already failed
	return nil
}

// resolveSettlementItem locates the line item a webhook event settles:
// by the id stamped into the intent metadata when present, else by the
// stored intent reference.
func (s *service) resolveSettlementItem(ctx context.Context, repo Repository, lineItemID uuid.UUID, intentID string) (*models.CheckoutLineItem, error) {
	if lineItemID != uuid.Nil {
		item, err := repo.FindLineItem(ctx, lineItemID)
		if err == nil {
			return item, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading line item")
		}
	}
	item, err := repo.FindLineItemByIntentID(ctx, intentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no line item for payment intent")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading line item")
	}
	return item, nil
}

func (s *service) loadGroup(ctx context.Context, groupID uuid.UUID) (*models.Group, error) {
	group, err := s.groups.FindGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "group not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading group")
	}
	return group, nil
}

func (s *service) loadSession(ctx context.Context, sessionID uuid.UUID) (*models.CheckoutSession, error) {
	session, err := s.repo.FindSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading session")
	}
	return session, nil
}

func (s *service) loadItemWithSession(ctx context.Context, itemID uuid.UUID) (*models.CheckoutLineItem, *models.CheckoutSession, error) {
	item, err := s.repo.FindLineItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "line item not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading line item")
	}
	session, err := s.loadSession(ctx, item.SessionID)
	if err != nil {
		return nil, nil, err
	}
	return item, session, nil
}

func (s *service) loadProducts(ctx context.Context, cartRows []models.CartItem) (map[uuid.UUID]models.Product, error) {
	seen := map[uuid.UUID]struct{}{}
	ids := make([]uuid.UUID, 0, len(cartRows))
	for _, row := range cartRows {
		if _, ok := seen[row.ProductID]; ok {
			continue
		}
		seen[row.ProductID] = struct{}{}
		ids = append(ids, row.ProductID)
	}
	rows, err := s.products.FindProducts(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading products")
	}
	byID := make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	return byID, nil
}
