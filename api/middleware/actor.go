package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/DanMeraDev/ElMayoristaProject/api/responses"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/enums"
	pkgerrors "github.com/DanMeraDev/ElMayoristaProject/pkg/errors"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/logger"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/types"
)

const (
	actorIDHeader    = "X-Actor-Id"
	actorRolesHeader = "X-Actor-Roles"
)

// Actor reads the identity headers set by the authenticating gateway and
// seeds the request context with the resolved actor.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(actorIDHeader))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			actorID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor id"))
				return
			}

			roles, err := parseRoles(r.Header.Get(actorRolesHeader))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			actor := types.Actor{ID: actorID, Roles: roles}
			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithActorID(ctx, actorID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseRoles(raw string) ([]enums.Role, error) {
	var roles []enums.Role
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		role, err := enums.ParseRole(part)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor role")
		}
		roles = append(roles, role)
	}
	if len(roles) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor roles")
	}
	return roles, nil
}

// RequireAdmin rejects requests whose actor does not carry the admin role.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			if !actor.IsAdmin() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
