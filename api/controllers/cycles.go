package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/DanMeraDev/ElMayoristaProject/api/middleware"
	"github.com/DanMeraDev/ElMayoristaProject/api/responses"
	"github.com/DanMeraDev/ElMayoristaProject/api/validators"
	"github.com/DanMeraDev/ElMayoristaProject/internal/cycles"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/db/models"
	pkgerrors "github.com/DanMeraDev/ElMayoristaProject/pkg/errors"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/logger"
)

type cycleListResponse struct {
	Items      []models.Cycle `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// CurrentCycle returns the aggregates of the open (virtual) cycle.
func CurrentCycle(svc cycles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.CurrentStats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// ListCycles returns the closed cycle history, newest first.
func ListCycles(svc cycles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input := cycles.ListInput{Cursor: strings.TrimSpace(r.URL.Query().Get("cursor"))}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Limit = limit

		items, nextCursor, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cycleListResponse{Items: items, NextCursor: nextCursor})
	}
}

// GetCycle returns one closed cycle.
func GetCycle(svc cycles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(chi.URLParam(r, "cycleID"), "cycleID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cycle, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cycle)
	}
}

// CloseCycle settles every approved unsettled sale into a new closed cycle.
func CloseCycle(svc cycles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		cycle, err := svc.Close(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, cycle)
	}
}
