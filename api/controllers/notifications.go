package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/DanMeraDev/ElMayoristaProject/api/middleware"
	"github.com/DanMeraDev/ElMayoristaProject/api/responses"
	"github.com/DanMeraDev/ElMayoristaProject/api/validators"
	"github.com/DanMeraDev/ElMayoristaProject/internal/notifications"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/db/models"
	pkgerrors "github.com/DanMeraDev/ElMayoristaProject/pkg/errors"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/logger"
)

type notificationListResponse struct {
	Items      []models.Notification `json:"items"`
	NextCursor string                `json:"next_cursor,omitempty"`
}

type reminderTickResponse struct {
	SalesProcessed int `json:"sales_processed"`
	Created        int `json:"created"`
	Reactivated    int `json:"reactivated"`
	EmailsSent     int `json:"emails_sent"`
	EmailFailures  int `json:"email_failures"`
	OrphansDeleted int `json:"orphans_deleted"`
}

// ListNotifications returns paginated notifications for the acting user.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		input := notifications.ListInput{
			UserID: actor.ID,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Limit = limit

		if unread := strings.TrimSpace(r.URL.Query().Get("unread_only")); unread != "" {
			value, err := strconv.ParseBool(unread)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unread_only value"))
				return
			}
			input.UnreadOnly = value
		}

		items, nextCursor, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, notificationListResponse{Items: items, NextCursor: nextCursor})
	}
}

// UnreadNotificationCount returns the acting user's unread badge count.
func UnreadNotificationCount(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		count, err := svc.UnreadCount(r.Context(), actor.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"unread": count})
	}
}

// MarkNotificationRead marks one of the acting user's notifications read.
func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		id, err := validators.ParsePathID(chi.URLParam(r, "notificationID"), "notificationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkRead(r.Context(), id, actor.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"read": true})
	}
}

// MarkAllNotificationsRead clears the acting user's unread set.
func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		if err := svc.MarkAllRead(r.Context(), actor.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"read": true})
	}
}

// RunReminders triggers one reminder tick on demand. The tick is idempotent,
// so running it alongside the scheduled worker is safe.
func RunReminders(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := svc.GenerateReminders(r.Context(), time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reminderTickResponse{
			SalesProcessed: summary.SalesProcessed,
			Created:        summary.Created,
			Reactivated:    summary.Reactivated,
			EmailsSent:     summary.EmailsSent,
			EmailFailures:  summary.EmailFailures,
			OrphansDeleted: summary.OrphansDeleted,
		})
	}
}
