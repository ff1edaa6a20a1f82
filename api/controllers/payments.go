package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/groupcart/groupcart-backend/api/responses"
	"github.com/groupcart/groupcart-backend/api/validators"
	checkoutsvc "github.com/groupcart/groupcart-backend/internal/checkout"
	pkgerrors "github.com/groupcart/groupcart-backend/pkg/errors"
	"github.com/groupcart/groupcart-backend/pkg/logger"
)

type paymentIntentRequest struct {
	LineItemID string `json:"line_item_id" validate:"required,uuid"`
}

// CreatePaymentIntent starts a Stripe payment for the caller's line item.
// It is the body-addressed twin of the item-scoped pay endpoint.
func CreatePaymentIntent(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload paymentIntentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := uuid.Parse(payload.LineItemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid line item id"))
			return
		}

		intent, err := svc.InitiatePayment(r.Context(), itemID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, intent)
	}
}
