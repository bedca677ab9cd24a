package middleware

import (
	"strconv"

	echo "github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rankforge/leaderboard/internal/apperr"
	"github.com/rankforge/leaderboard/internal/cache"
	"github.com/rankforge/leaderboard/internal/config"
)

// RateLimitMiddleware enforces the tenant's token bucket and always sets
// X-RateLimit-Limit / X-RateLimit-Remaining / X-RateLimit-Reset on an
// allowed request, adding Retry-After only when the request is rejected.
// A disabled bucket (cfg.Enabled == false) is a no-op. A Redis error
// checking the bucket fails open by default — the request is served and
// the failure logged — since an unreachable rate limiter shouldn't turn
// into a blanket outage; set cfg.FailClosed to refuse instead.
func RateLimitMiddleware(rl *cache.RateLimiter, cfg config.RateLimitConfig, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Enabled {
				return next(c)
			}
			id, ok := IdentityFromCtx(c)
			if !ok {
				return next(c)
			}

			decision, err := rl.Allow(c.Request().Context(), id.Tenant.ID, id.Plan)
			if err != nil {
				log.Warn("rate limit check failed", zap.String("tenant_id", id.Tenant.ID), zap.Error(err))
				if cfg.FailClosed {
					return err
				}
				return next(c)
			}

			c.Response().Header().Set("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
			c.Response().Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt, 10))

			if !decision.Allowed {
				c.Response().Header().Set("Retry-After", strconv.FormatInt(decision.RetryAfterSecs, 10))
				return apperr.New(apperr.RateLimited, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
