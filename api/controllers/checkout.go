package controllers

import (
	"net/http"

	"github.com/groupcart/groupcart-backend/api/responses"
	"github.com/groupcart/groupcart-backend/api/validators"
	checkoutsvc "github.com/groupcart/groupcart-backend/internal/checkout"
	pkgerrors "github.com/groupcart/groupcart-backend/pkg/errors"
	"github.com/groupcart/groupcart-backend/pkg/logger"
	"github.com/groupcart/groupcart-backend/pkg/types"
)

type shippingAddressRequest struct {
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required,len=2"`
}

// OpenCheckoutSession snapshots the group's carts into a new session.
func OpenCheckoutSession(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		adminID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		groupID, err := pathUUID(r, "groupId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.OpenSession(r.Context(), groupID, adminID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

// CheckoutSessionDetail returns the session snapshot with its line items.
func CheckoutSessionDetail(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID, err := pathUUID(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.GetSession(r.Context(), sessionID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// NotifyCheckoutMembers fans a payment reminder out to every member with a line item.
func NotifyCheckoutMembers(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID, err := pathUUID(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.NotifyMembers(r.Context(), sessionID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"notified": created})
	}
}

// CancelCheckoutSession cancels a non-terminal session.
func CancelCheckoutSession(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID, err := pathUUID(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.CancelSession(r.Context(), sessionID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

// SetLineItemAddress records the shipping address on the caller's line item.
func SetLineItemAddress(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload shippingAddressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		address := types.Address{
			Line1:      payload.Line1,
			Line2:      payload.Line2,
			City:       payload.City,
			State:      payload.State,
			PostalCode: payload.PostalCode,
			Country:    payload.Country,
		}

		if err := svc.SetShippingAddress(r.Context(), itemID, userID, address); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "address_set"})
	}
}

// InitiateLineItemPayment creates a payment intent for the caller's line item.
func InitiateLineItemPayment(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
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
