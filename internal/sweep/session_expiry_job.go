package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/groupcart/groupcart-backend/pkg/enums"
	"github.com/groupcart/groupcart-backend/pkg/logger"
	"github.com/groupcart/groupcart-backend/pkg/metrics"
	"github.com/groupcart/groupcart-backend/pkg/db/models"
)

const (
	defaultExpiryBatchSize = 200
	sessionExpiryJobName   = "session-expiry"
)

// expiredSessionStore is the slice of the checkout repository the job needs.
type expiredSessionStore interface {
	ListExpiredSessions(ctx context.Context, cutoff time.Time, limit int) ([]models.CheckoutSession, error)
	AdvanceSessionStatus(ctx context.Context, id uuid.UUID, from []enums.SessionStatus, to enums.SessionStatus) (bool, error)
}

// SessionExpiryJobParams configure the expiry job.
type SessionExpiryJobParams struct {
	Logger    *logger.Logger
	Sessions  expiredSessionStore
	Metrics   *metrics.SweepMetrics
	BatchSize int
	Now       func() time.Time
}

// SessionExpiryJob cancels checkout sessions whose deadline has passed
// before every member paid.
type SessionExpiryJob struct {
	logg      *logger.Logger
	sessions  expiredSessionStore
	metrics   *metrics.SweepMetrics
	batchSize int
	now       func() time.Time
}

// NewSessionExpiryJob builds the expiry job.
func NewSessionExpiryJob(params SessionExpiryJobParams) (*SessionExpiryJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultExpiryBatchSize
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &SessionExpiryJob{
		logg:      params.Logger,
		sessions:  params.Sessions,
		metrics:   params.Metrics,
		batchSize: batchSize,
		now:       now,
	}, nil
}

// Name implements Job.
func (j *SessionExpiryJob) Name() string {
	return sessionExpiryJobName
}

// Run cancels every non-terminal session past its expiry, one batch per cycle.
func (j *SessionExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	expired, err := j.sessions.ListExpiredSessions(ctx, cutoff, j.batchSize)
	if err != nil {
		return fmt.Errorf("list expired sessions: %w", err)
	}
	if len(expired) == 0 {
		return nil
	}

	var errs error
	cancelled := 0
	for _, session := range expired {
		updated, err := j.sessions.AdvanceSessionStatus(ctx, session.ID, []enums.SessionStatus{
			enums.SessionStatusPending,
			enums.SessionStatusMemberPayments,
		}, enums.SessionStatusCancelled)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("cancel session %s: %w", session.ID, err))
			continue
		}
		if !updated {
			// Completed or cancelled between the list and the update.
			continue
		}
		cancelled++
		j.logg.Info(j.logg.WithSessionID(ctx, session.ID.String()), "expired checkout session cancelled")
	}

	j.metrics.AddCancelled(cancelled)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"expired":   len(expired),
		"cancelled": cancelled,
	}), "session expiry pass finished")
	return errs
}
