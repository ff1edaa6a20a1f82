package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/groupcart/groupcart-backend/pkg/errors"
	"github.com/groupcart/groupcart-backend/pkg/logger"
)

type settlement interface {
	ApplyPaymentSuccess(ctx context.Context, lineItemID uuid.UUID, intentID string, paidAt time.Time) error
	ApplyPaymentFailure(ctx context.Context, lineItemID uuid.UUID, intentID, reason string) error
}

// WebhookServiceParams wires webhook handler dependencies.
type WebhookServiceParams struct {
	Settlement settlement
	Logger     *logger.Logger
}

// WebhookService translates Stripe payment events into settlement calls.
type WebhookService struct {
	settlement settlement
	logg       *logger.Logger
}

func NewWebhookService(params WebhookServiceParams) (*WebhookService, error) {
	if params.Settlement == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &WebhookService{
		settlement: params.Settlement,
		logg:       params.Logger,
	}, nil
}

// HandleEvent routes a verified Stripe event. Unknown event types and
// events referencing unknown line items are acked, not retried: Stripe
// redelivers on error, and neither case can succeed later.
func (s *WebhookService) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		paidAt := time.Unix(event.Created, 0).UTC()
		if err := s.settlement.ApplyPaymentSuccess(ctx, lineItemRef(intent), intent.ID, paidAt); err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
				s.logg.Warn(ctx, fmt.Sprintf("payment intent %s matches no line item, acking", intent.ID))
				return nil
			}
			return err
		}
		return nil

	case stripe.EventTypePaymentIntentPaymentFailed:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		if err := s.settlement.ApplyPaymentFailure(ctx, lineItemRef(intent), intent.ID, failureReason(intent)); err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
				s.logg.Warn(ctx, fmt.Sprintf("payment intent %s matches no line item, acking", intent.ID))
				return nil
			}
			return err
		}
		return nil

	default:
		return nil
	}
}

func decodeIntent(event *stripe.Event) (*stripe.PaymentIntent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}
	if intent.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	return &intent, nil
}

// lineItemRef reads the line item id stamped into the intent metadata
// at creation. uuid.Nil when absent or unparseable; settlement then
// falls back to the stored intent reference.
func lineItemRef(intent *stripe.PaymentIntent) uuid.UUID {
	raw, ok := intent.Metadata[MetadataLineItemID]
	if !ok {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func failureReason(intent *stripe.PaymentIntent) string {
	if intent.LastPaymentError != nil {
		if intent.LastPaymentError.Code != "" {
			return string(intent.LastPaymentError.Code)
		}
		if intent.LastPaymentError.Msg != "" {
			return intent.LastPaymentError.Msg
		}
	}
	return "payment_failed"
}
