package controllers

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/phuoc-stack/foodapp-backend/api/responses"
	"github.com/phuoc-stack/foodapp-backend/pkg/config"
	pkgerrors "github.com/phuoc-stack/foodapp-backend/pkg/errors"
	"github.com/phuoc-stack/foodapp-backend/pkg/logger"
)

const (
	envHeader    = "X-FoodApp-Env"
	readyTimeout = 2 * time.Second
)

// Pinger is anything the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings Postgres and Redis in parallel. A nil pinger is reported
// as not configured rather than failing the probe.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbPinger, redisPinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		names := []string{"database", "redis"}
		pingers := []Pinger{dbPinger, redisPinger}
		statuses := make([]string, len(names))

		g, gctx := errgroup.WithContext(ctx)
		for i, pinger := range pingers {
			if pinger == nil {
				statuses[i] = "not_configured"
				continue
			}
			g.Go(func() error {
				if err := pinger.Ping(gctx); err != nil {
					statuses[i] = "down"
					if logg != nil {
						logg.Error(logg.WithField(ctx, "check", names[i]), "health.ready.failed", err)
					}
					return err
				}
				statuses[i] = "ok"
				return nil
			})
		}
		err := g.Wait()

		results := make(map[string]string, len(names))
		for i, name := range names {
			results[name] = statuses[i]
		}
		if err != nil {
			responses.WriteError(r.Context(), nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dependency unavailable").WithDetails(map[string]any{"checks": results}))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": results})
	}
}
