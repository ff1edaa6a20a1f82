package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/groupcart/groupcart-backend/pkg/db/models"
	"github.com/groupcart/groupcart-backend/pkg/enums"
	"github.com/groupcart/groupcart-backend/pkg/types"
)

// Repository exposes checkout session and line item persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateSession(ctx context.Context, session *models.CheckoutSession) (*models.CheckoutSession, error)
	CreateLineItems(ctx context.Context, items []models.CheckoutLineItem) error
	FindSession(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error)
	FindActiveSessionByGroup(ctx context.Context, groupID uuid.UUID) (*models.CheckoutSession, error)
	FindLineItem(ctx context.Context, id uuid.UUID) (*models.CheckoutLineItem, error)
	FindLineItemByIntentID(ctx context.Context, intentID string) (*models.CheckoutLineItem, error)
	UpdateLineItemAddress(ctx context.Context, id uuid.UUID, address types.Address) error
	SetLineItemIntent(ctx context.Context, id uuid.UUID, intentID string) (bool, error)
	SettleLineItemPaid(ctx context.Context, id uuid.UUID, intentID string, paidAt time.Time) (bool, error)
	SettleLineItemFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	CountUnpaidItems(ctx context.Context, sessionID uuid.UUID) (int, error)
	AdvanceSessionStatus(ctx context.Context, id uuid.UUID, from []enums.SessionStatus, to enums.SessionStatus) (bool, error)
	ListExpiredSessions(ctx context.Context, cutoff time.Time, limit int) ([]models.CheckoutSession, error)
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

// CreateSession inserts a session row. The partial unique index on
// (group_id) over non-terminal statuses is the concurrency backstop.
func (r *repository) CreateSession(ctx context.Context, session *models.CheckoutSession) (*models.CheckoutSession, error) {
	if err := r.db.WithContext(ctx).Omit("Items").Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

// CreateLineItems bulk-inserts session line items.
func (r *repository) CreateLineItems(ctx context.Context, items []models.CheckoutLineItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// FindSession loads a session with its line items.
func (r *repository) FindSession(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&session, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// FindActiveSessionByGroup returns the group's non-terminal session,
// or gorm.ErrRecordNotFound when none is open.
func (r *repository) FindActiveSessionByGroup(ctx context.Context, groupID uuid.UUID) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND status IN ?", groupID, []enums.SessionStatus{
			enums.SessionStatusPending,
			enums.SessionStatusMemberPayments,
		}).
		First(&session).
		Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// FindLineItem loads a line item by ID.
func (r *repository) FindLineItem(ctx context.Context, id uuid.UUID) (*models.CheckoutLineItem, error) {
	var item models.CheckoutLineItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindLineItemByIntentID loads a line item by its payment intent reference.
func (r *repository) FindLineItemByIntentID(ctx context.Context, intentID string) (*models.CheckoutLineItem, error) {
	var item models.CheckoutLineItem
	if err := r.db.WithContext(ctx).First(&item, "payment_intent_id = ?", intentID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateLineItemAddress writes the shipping address JSONB column.
func (r *repository) UpdateLineItemAddress(ctx context.Context, id uuid.UUID, address types.Address) error {
	return r.db.WithContext(ctx).
		Model(&models.CheckoutLineItem{}).
		Where("id = ?", id).
		Update("shipping_address", &address).
		Error
}

// SetLineItemIntent stores the payment intent reference while the item
// is still payable (pending or failed). A paid item is never touched.
func (r *repository) SetLineItemIntent(ctx context.Context, id uuid.UUID, intentID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CheckoutLineItem{}).
		Where("id = ? AND payment_status IN ?", id, []enums.PaymentStatus{
			enums.PaymentStatusPending,
			enums.PaymentStatusFailed,
		}).
		Updates(map[string]any{
			"payment_intent_id": intentID,
			"payment_status":    enums.PaymentStatusPending,
			"failure_reason":    nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SettleLineItemPaid flips the item to paid and records the intent that
// actually captured the money, replacing any stale reference left by a
// later re-initiation. The status guard makes duplicate webhook
// deliveries no-ops.
func (r *repository) SettleLineItemPaid(ctx context.Context, id uuid.UUID, intentID string, paidAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CheckoutLineItem{}).
		Where("id = ? AND payment_status <> ?", id, enums.PaymentStatusPaid).
		Updates(map[string]any{
			"payment_status":    enums.PaymentStatusPaid,
			"payment_intent_id": intentID,
			"paid_at":           paidAt,
			"failure_reason":    nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SettleLineItemFailed records the failure reason. A paid item stays
// paid: success wins over an out-of-order failure event.
func (r *repository) SettleLineItemFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CheckoutLineItem{}).
		Where("id = ? AND payment_status = ?", id, enums.PaymentStatusPending).
		Updates(map[string]any{
			"payment_status": enums.PaymentStatusFailed,
			"failure_reason": reason,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CountUnpaidItems returns the number of line items not yet paid.
func (r *repository) CountUnpaidItems(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CheckoutLineItem{}).
		Where("session_id = ? AND payment_status <> ?", sessionID, enums.PaymentStatusPaid).
		Count(&count).
		Error
	return int(count), err
}

// AdvanceSessionStatus moves the session to a new status only from the
// allowed set, stamping the matching terminal timestamp.
func (r *repository) AdvanceSessionStatus(ctx context.Context, id uuid.UUID, from []enums.SessionStatus, to enums.SessionStatus) (bool, error) {
	updates := map[string]any{"status": to}
	switch to {
	case enums.SessionStatusCompleted:
		updates["completed_at"] = gorm.Expr("CURRENT_TIMESTAMP")
	case enums.SessionStatusCancelled:
		updates["cancelled_at"] = gorm.Expr("CURRENT_TIMESTAMP")
	}

	result := r.db.WithContext(ctx).
		Model(&models.CheckoutSession{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListExpiredSessions returns non-terminal sessions past their expiry.
func (r *repository) ListExpiredSessions(ctx context.Context, cutoff time.Time, limit int) ([]models.CheckoutSession, error) {
	var rows []models.CheckoutSession
	q := r.db.WithContext(ctx).
		Where("status IN ? AND expires_at <= ?", []enums.SessionStatus{
			enums.SessionStatusPending,
			enums.SessionStatusMemberPayments,
		}, cutoff).
		Order("expires_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

// NotificationRepository persists per-member checkout notifications.
type NotificationRepository interface {
	WithTx(tx *gorm.DB) NotificationRepository
	CreateNotifications(ctx context.Context, rows []models.CheckoutNotification) (int, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.CheckoutNotification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository builds a notification repository.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) WithTx(tx *gorm.DB) NotificationRepository {
	return &notificationRepository{db: tx}
}

// CreateNotifications inserts rows, skipping (session, user) pairs that
// already exist. Returns the number of new rows.
func (r *notificationRepository) CreateNotifications(ctx context.Context, rows []models.CheckoutNotification) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&rows)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.CheckoutNotification, error) {
	var rows []models.CheckoutNotification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).
		Error
	return rows, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CheckoutNotification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", id, userID).
		Update("read_at", gorm.Expr("CURRENT_TIMESTAMP"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
