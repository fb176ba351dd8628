package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/notifyd/api/responses"
	pkgerrors "github.com/angelmondragon/notifyd/pkg/errors"
	"github.com/angelmondragon/notifyd/pkg/logger"
)

const envHeader = "X-Notifyd-Env"

// Pinger is implemented by every backing store the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(env string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database and redis. A nil pinger is skipped.
func HealthReady(env string, logg *logger.Logger, dbP, redisP Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set(envHeader, env)

		checks := []struct {
			name string
			p    Pinger
		}{
			{"database", dbP},
			{"redis", redisP},
		}
		for _, c := range checks {
			if c.p == nil {
				continue
			}
			if err := c.p.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, c.name+" unavailable").
					WithDetails(map[string]any{"check": c.name}))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
