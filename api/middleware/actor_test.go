package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/DanMeraDev/ElMayoristaProject/pkg/enums"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/logger"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/types"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "api-test", Output: io.Discard})
}

func actorEcho(t *testing.T, captured *types.Actor) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			t.Fatal("actor missing from context")
		}
		*captured = actor
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestActorSeedsContext(t *testing.T) {
	var captured types.Actor
	handler := Actor(testLogger())(actorEcho(t, &captured))

	actorID := uuid.New()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Actor-Id", actorID.String())
	r.Header.Set("X-Actor-Roles", "SELLER, ADMIN")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if captured.ID != actorID {
		t.Fatalf("actor id = %s", captured.ID)
	}
	if !captured.IsAdmin() {
		t.Fatal("admin role lost")
	}
	if len(captured.Roles) != 2 {
		t.Fatalf("roles = %v", captured.Roles)
	}
}

func TestActorRejectsMissingHeader(t *testing.T) {
	handler := Actor(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestActorRejectsUnknownRole(t *testing.T) {
	handler := Actor(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Actor-Id", uuid.NewString())
	r.Header.Set("X-Actor-Roles", "SUPERUSER")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	var hits int
	handler := RequireAdmin(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNoContent)
	}))

	seller := types.Actor{ID: uuid.New(), Roles: []enums.Role{enums.RoleSeller}}
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r = r.WithContext(WithActor(r.Context(), seller))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusForbidden || hits != 0 {
		t.Fatalf("seller: status = %d hits = %d", w.Code, hits)
	}

	admin := types.Actor{ID: uuid.New(), Roles: []enums.Role{enums.RoleAdmin}}
	r = httptest.NewRequest(http.MethodPost, "/", nil)
	r = r.WithContext(WithActor(r.Context(), admin))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusNoContent || hits != 1 {
		t.Fatalf("admin: status = %d hits = %d", w.Code, hits)
	}
}
