package middleware

import (
	echo "github.com/labstack/echo/v4"

	"github.com/rankforge/leaderboard/internal/cache"
	"github.com/rankforge/leaderboard/internal/quota"
)

// UsageKind tells UsageTrackingMiddleware which counter a route increments.
type UsageKind int

const (
	UsageScoreUpdate UsageKind = iota
	UsageLeaderboardRead
)

// UsageTrackingMiddleware fires after a successful response and records
// the request against both usage stores: the Redis counters the dashboard
// reads in near-real-time, and the MySQL monthly rollup quota.Service.Check
// sums against the plan's request ceiling. Neither blocks the request on a
// tracking failure.
func UsageTrackingMiddleware(tracker *cache.UsageTracker, quotaSvc *quota.Service, kind UsageKind) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			id, ok := IdentityFromCtx(c)
			if err == nil && ok && c.Response().Status < 400 {
				ctx := c.Request().Context()
				switch kind {
				case UsageScoreUpdate:
					_ = tracker.RecordScoreUpdate(ctx, id.Tenant.ID, id.Project.ID, 1)
					_ = quotaSvc.RecordUsage(ctx, id.Tenant.ID, id.Project.ID, 1, 0)
				case UsageLeaderboardRead:
					_ = tracker.RecordLeaderboardRead(ctx, id.Tenant.ID, id.Project.ID, 1)
					_ = quotaSvc.RecordUsage(ctx, id.Tenant.ID, id.Project.ID, 0, 1)
				}
			}
			return err
		}
	}
}
