package controllers

import (
	"context"
	"net/http"

	"github.com/DanMeraDev/ElMayoristaProject/api/responses"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/config"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/logger"
)

// Pinger is the health-check surface a dependency must expose.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Mayorista-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes each wired dependency. Optional dependencies passed as
// nil are reported as skipped instead of failing readiness.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP, storageP Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Mayorista-Env", cfg.App.Env)

		deps := []struct {
			name string
			dep  Pinger
		}{
			{"postgres", dbP},
			{"redis", redisP},
			{"storage", storageP},
		}

		checks := map[string]string{}
		healthy := true
		for _, entry := range deps {
			if entry.dep == nil {
				checks[entry.name] = "skipped"
				continue
			}
			if err := entry.dep.Ping(r.Context()); err != nil {
				checks[entry.name] = "down"
				healthy = false
				if logg != nil {
					ctx := logg.WithField(r.Context(), "dependency", entry.name)
					logg.Error(ctx, "readiness check failed", err)
				}
				continue
			}
			checks[entry.name] = "up"
		}

		status := http.StatusOK
		state := "ready"
		if !healthy {
			status = http.StatusServiceUnavailable
			state = "degraded"
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"status": state,
			"checks": checks,
		})
	}
}
