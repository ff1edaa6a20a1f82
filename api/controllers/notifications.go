package controllers

import (
	"net/http"

	"github.com/groupcart/groupcart-backend/api/responses"
	checkoutsvc "github.com/groupcart/groupcart-backend/internal/checkout"
	pkgerrors "github.com/groupcart/groupcart-backend/pkg/errors"
	"github.com/groupcart/groupcart-backend/pkg/logger"
)

// ListNotifications returns the caller's checkout notifications, newest first.
func ListNotifications(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		notifications, err := svc.ListNotifications(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, notifications)
	}
}

// MarkNotificationRead stamps the caller's notification as read.
func MarkNotificationRead(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		notificationID, err := pathUUID(r, "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkNotificationRead(r.Context(), notificationID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "read"})
	}
}
