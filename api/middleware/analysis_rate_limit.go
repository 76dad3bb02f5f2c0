package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/voynichlabs/voynich-backend/api/responses"
	"github.com/voynichlabs/voynich-backend/pkg/config"
	pkgerrors "github.com/voynichlabs/voynich-backend/pkg/errors"
	"github.com/voynichlabs/voynich-backend/pkg/logger"
)

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AnalysisRateLimit throttles analysis submissions per user. Credits already
// bound total spend; the limiter only smooths out bursts against the
// provider. Must run after Auth.
func AnalysisRateLimit(cfg config.RateLimitConfig, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg.AnalysisLimit <= 0 || cfg.AnalysisWindow <= 0 || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID := UserIDFromContext(ctx)
			scope := fmt.Sprintf("analysis:%s", userID)
			allowed, count, err := store.FixedWindowAllow(ctx, scope, int64(cfg.AnalysisLimit), cfg.AnalysisWindow)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if !allowed {
				if logg != nil {
					logCtx := logg.WithFields(ctx, map[string]any{
						"attempts":       count,
						"limit":          cfg.AnalysisLimit,
						"window_seconds": int(cfg.AnalysisWindow.Seconds()),
					})
					logg.Warn(logCtx, "analysis.rate_limit.blocked")
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
