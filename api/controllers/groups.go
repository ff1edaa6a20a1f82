package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/groupcart/groupcart-backend/api/middleware"
	"github.com/groupcart/groupcart-backend/api/responses"
	"github.com/groupcart/groupcart-backend/api/validators"
	groupsvc "github.com/groupcart/groupcart-backend/internal/groups"
	pkgerrors "github.com/groupcart/groupcart-backend/pkg/errors"
	"github.com/groupcart/groupcart-backend/pkg/logger"
)

type createGroupRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description,omitempty" validate:"max=2000"`
	ProductID   string `json:"product_id" validate:"required,uuid"`
	IsPrivate   bool   `json:"is_private,omitempty"`
	MemberLimit int    `json:"member_limit,omitempty" validate:"omitempty,min=2"`
}

type joinRequestBody struct {
	Message *string `json:"message,omitempty" validate:"omitempty,max=500"`
}

type reviewJoinRequestBody struct {
	Approve bool `json:"approve"`
}

// CreateGroup creates a buying group with the caller as creator.
func CreateGroup(svc groupsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "group service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createGroupRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		group, err := svc.CreateGroup(r.Context(), userID, groupsvc.CreateGroupInput{
			Name:        payload.Name,
			Description: payload.Description,
			ProductID:   productID,
			IsPrivate:   payload.IsPrivate,
			MemberLimit: payload.MemberLimit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, group)
	}
}

// GroupDetail returns a group with its current member count.
func GroupDetail(svc groupsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "group service unavailable"))
			return
		}

		groupID, err := pathUUID(r, "groupId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.GetGroup(r.Context(), groupID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// GroupMembers returns the group's roster with display names.
func GroupMembers(svc groupsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "group service unavailable"))
			return
		}

		groupID, err := pathUUID(r, "groupId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		members, err := svc.ListMembers(r.Context(), groupID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, members)
	}
}

// RequestJoin files a pending join request for the caller.
func RequestJoin(svc groupsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "group service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		groupID, err := pathUUID(r, "groupId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload joinRequestBody
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		request, err := svc.RequestJoin(r.Context(), groupID, userID, payload.Message)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

// ReviewJoinRequest lets the group creator approve or reject a pending request.
func ReviewJoinRequest(svc groupsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "group service unavailable"))
			return
		}

		reviewerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestID, err := pathUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload reviewJoinRequestBody
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.ReviewJoinRequest(r.Context(), requestID, reviewerID, payload.Approve)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// LeaveGroup removes the caller from the group's membership.
func LeaveGroup(svc groupsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "group service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		groupID, err := pathUUID(r, "groupId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.LeaveGroup(r.Context(), groupID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "left"})
	}
}

func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return id, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}
