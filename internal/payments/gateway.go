package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/groupcart/groupcart-backend/pkg/enums"
	pkgerrors "github.com/groupcart/groupcart-backend/pkg/errors"
	"github.com/groupcart/groupcart-backend/pkg/money"
	pkgstripe "github.com/groupcart/groupcart-backend/pkg/stripe"
)

// Metadata keys stamped on every payment intent so the webhook can
// route settlement back to the originating line item.
const (
	MetadataLineItemID = "line_item_id"
	MetadataUserID     = "user_id"
	MetadataGroupID    = "group_id"
)

// IntentInput describes one line item charge.
type IntentInput struct {
	AmountCents int
	Currency    enums.Currency
	LineItemID  uuid.UUID
	UserID      uuid.UUID
	GroupID     uuid.UUID
}

// IntentResult carries the processor references the client needs to
// confirm the payment.
type IntentResult struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
}

// Gateway creates payment intents with the processor.
type Gateway interface {
	CreateIntent(ctx context.Context, input IntentInput) (*IntentResult, error)
}

type stripeGateway struct {
	client         *pkgstripe.Client
	requestTimeout time.Duration
}

// NewStripeGateway wraps the Stripe client as a payment gateway.
func NewStripeGateway(client *pkgstripe.Client, requestTimeout time.Duration) (Gateway, error) {
	if client == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	if requestTimeout <= 0 {
		requestTimeout = 15 * time.Second
	}
	return &stripeGateway{client: client, requestTimeout: requestTimeout}, nil
}

// CreateIntent creates a Stripe payment intent for the line item.
// Amounts are integer minor units end to end; no float conversion
// happens on the processor path.
func (g *stripeGateway) CreateIntent(ctx context.Context, input IntentInput) (*IntentResult, error) {
	if err := money.ValidateChargeAmount(input.AmountCents); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid charge amount")
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported currency %q", input.Currency))
	}
	if input.LineItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item id required")
	}

	ctx, cancel := context.WithTimeout(ctx, g.requestTimeout)
	defer cancel()

	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(int64(input.AmountCents)),
		Currency: stripe.String(input.Currency.String()),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata(MetadataLineItemID, input.LineItemID.String())
	params.AddMetadata(MetadataUserID, input.UserID.String())
	params.AddMetadata(MetadataGroupID, input.GroupID.String())

	intent, err := g.client.API().V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating payment intent")
	}

	return &IntentResult{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
	}, nil
}
