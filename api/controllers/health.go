package controllers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gomarketplace/cartstore/api/responses"
	pkgerrors "github.com/gomarketplace/cartstore/pkg/errors"
	"github.com/gomarketplace/cartstore/pkg/config"
	"github.com/gomarketplace/cartstore/pkg/logger"
)

const envHeader = "X-GoMarket-Env"

const readyTimeout = 2 * time.Second

// Pinger is implemented by every backing dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings each dependency and answers 503 when any of them fails.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		checks := make(map[string]string, len(names))
		var failed *pkgerrors.Error
		for _, name := range names {
			if err := deps[name].Ping(ctx); err != nil {
				checks[name] = "error"
				if failed == nil {
					failed = pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable")
				}
				continue
			}
			checks[name] = "ok"
		}

		if failed != nil {
			responses.WriteError(r.Context(), logg, w, failed.WithDetails(map[string]any{"checks": checks}))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
