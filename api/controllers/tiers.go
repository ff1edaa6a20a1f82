package controllers

import (
	"net/http"

	"github.com/groupcart/groupcart-backend/api/responses"
	"github.com/groupcart/groupcart-backend/api/validators"
	catalogsvc "github.com/groupcart/groupcart-backend/internal/catalog"
	pkgerrors "github.com/groupcart/groupcart-backend/pkg/errors"
	"github.com/groupcart/groupcart-backend/pkg/logger"
)

type createTierRequest struct {
	MembersRequired int `json:"members_required" validate:"required,min=1"`
	DiscountPercent int `json:"discount_percent" validate:"required,min=1,max=90"`
}

type updateTierRequest struct {
	MembersRequired *int `json:"members_required,omitempty" validate:"omitempty,min=1"`
	DiscountPercent *int `json:"discount_percent,omitempty" validate:"omitempty,min=1,max=90"`
}

// ListProductTiers returns a product's discount ladder ordered by member threshold.
func ListProductTiers(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tiers, err := svc.ListTiers(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tiers)
	}
}

// VendorCreateTier adds a discount tier to one of the vendor's products.
func VendorCreateTier(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		vendorID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createTierRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tier, err := svc.CreateTier(r.Context(), vendorID, productID, catalogsvc.TierInput{
			MembersRequired: payload.MembersRequired,
			DiscountPercent: payload.DiscountPercent,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, tier)
	}
}

// VendorUpdateTier mutates an existing tier's threshold or percentage.
func VendorUpdateTier(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		vendorID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tierID, err := pathUUID(r, "tierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateTierRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.MembersRequired == nil && payload.DiscountPercent == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update"))
			return
		}

		tier, err := svc.UpdateTier(r.Context(), vendorID, productID, tierID, catalogsvc.UpdateTierInput{
			MembersRequired: payload.MembersRequired,
			DiscountPercent: payload.DiscountPercent,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tier)
	}
}

// VendorDeleteTier removes a tier from the product's ladder.
func VendorDeleteTier(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		vendorID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tierID, err := pathUUID(r, "tierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteTier(r.Context(), vendorID, productID, tierID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
