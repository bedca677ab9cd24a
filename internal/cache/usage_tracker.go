package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rankforge/leaderboard/internal/clock"
)

// UsageTracker increments per-tenant and per-project request counters in
// Redis on every score-update and leaderboard-read request, independent of the MySQL
// rollup that backs monthly quota checks. It exists for near-real-time
// dashboards where a MySQL round trip per request would be wasteful.
type UsageTracker struct {
	rdb            *redis.Client
	clock          clock.Clock
	retentionHours int
}

func NewUsageTracker(rdb *redis.Client, clk clock.Clock, retentionDays int) *UsageTracker {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return &UsageTracker{rdb: rdb, clock: clk, retentionHours: retentionDays * 24}
}

// RecordScoreUpdate bumps the score-update counters for a tenant and
// project on the current UTC day.
func (t *UsageTracker) RecordScoreUpdate(ctx context.Context, tenantID, projectID string, n int64) error {
	return t.incr(ctx, "score_updates", tenantID, projectID, n)
}

// RecordLeaderboardRead bumps the read counters. Reads are tracked for
// usage reporting but never gate the monthly quota.
func (t *UsageTracker) RecordLeaderboardRead(ctx context.Context, tenantID, projectID string, n int64) error {
	return t.incr(ctx, "leaderboard_reads", tenantID, projectID, n)
}

func (t *UsageTracker) incr(ctx context.Context, field, tenantID, projectID string, n int64) error {
	now := t.clock.Now()
	date := now.Format("2006-01-02")
	tenantKey := fmt.Sprintf("usage:%s:%s", tenantID, date)
	projectKey := fmt.Sprintf("usage:%s:%s:%s", tenantID, projectID, date)
	ttl := time.Duration(t.retentionHours) * time.Hour

	pipe := t.rdb.TxPipeline()
	pipe.HIncrBy(ctx, tenantKey, field, n)
	pipe.HIncrBy(ctx, tenantKey, "requests", n)
	pipe.HIncrBy(ctx, tenantKey, "hour:"+now.Format("15"), n)
	pipe.Expire(ctx, tenantKey, ttl)
	pipe.HIncrBy(ctx, projectKey, field, n)
	pipe.Expire(ctx, projectKey, ttl)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("pipeline usage incr: %w", err)
	}
	return nil
}
