package scoring

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rankforge/leaderboard/internal/model"
)

// Metadata is the sorted-set-visible subset of a leaderboard's config,
// mirrored into a Redis hash at l:meta:{tenantId}:{projectId}:{id} so the
// scoring hot path never has to hit MySQL to learn how to write a score.
type Metadata struct {
	TenantID   string
	ProjectID  string
	Name       string
	SortOrder  model.SortOrder
	UpdateMode model.UpdateMode
	TTLDays    int
	CreatedAt  time.Time
}

// scoreKey and metaKey namespace every sorted set and metadata hash under
// the owning tenant and project. ULIDs make a leaderboard ID collision
// across tenants exceedingly unlikely on their own, but the namespace is
// the documented contract the rest of the platform (and any operator
// poking at Redis directly) relies on, not an accident of ID uniqueness.
func scoreKey(tenantID, projectID, leaderboardID string) string {
	return fmt.Sprintf("l:%s:%s:%s", tenantID, projectID, leaderboardID)
}

func metaKey(tenantID, projectID, leaderboardID string) string {
	return fmt.Sprintf("l:meta:%s:%s:%s", tenantID, projectID, leaderboardID)
}

// defaultMetadata is returned when the metadata hash has not been
// populated yet, matching what a freshly created leaderboard would
// resolve to before its leaderboard.created event has been consumed by
// the worker.
func defaultMetadata(tenantID, projectID string) Metadata {
	return Metadata{TenantID: tenantID, ProjectID: projectID, SortOrder: model.SortDesc, UpdateMode: model.ModeReplace, TTLDays: 0}
}

func GetMetadata(ctx context.Context, rdb *redis.Client, tenantID, projectID, leaderboardID string) (Metadata, error) {
	vals, err := rdb.HGetAll(ctx, metaKey(tenantID, projectID, leaderboardID)).Result()
	if err != nil {
		return Metadata{}, fmt.Errorf("read leaderboard metadata: %w", err)
	}
	md := defaultMetadata(tenantID, projectID)
	if len(vals) == 0 {
		return md, nil
	}

	if v, ok := vals["name"]; ok {
		md.Name = v
	}
	if v, ok := vals["sortOrder"]; ok && model.SortOrder(v).Valid() {
		md.SortOrder = model.SortOrder(v)
	}
	if v, ok := vals["updateMode"]; ok && model.UpdateMode(v).Valid() {
		md.UpdateMode = model.UpdateMode(v)
	}
	if v, ok := vals["ttlDays"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			md.TTLDays = n
		}
	}
	if v, ok := vals["createdAt"]; ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			md.CreatedAt = t
		}
	}
	return md, nil
}

// SetMetadata upserts the metadata hash without a TTL of its own; it lives
// as long as the leaderboard does and is deleted explicitly on
// leaderboard.deleted.
func SetMetadata(ctx context.Context, rdb *redis.Client, tenantID, projectID, leaderboardID string, md Metadata) error {
	err := rdb.HSet(ctx, metaKey(tenantID, projectID, leaderboardID), map[string]interface{}{
		"tenantId":   tenantID,
		"projectId":  projectID,
		"name":       md.Name,
		"sortOrder":  string(md.SortOrder),
		"updateMode": string(md.UpdateMode),
		"ttlDays":    strconv.Itoa(md.TTLDays),
		"createdAt":  md.CreatedAt.Format(time.RFC3339),
	}).Err()
	if err != nil {
		return fmt.Errorf("write leaderboard metadata: %w", err)
	}
	return nil
}

func DeleteLeaderboardKeys(ctx context.Context, rdb *redis.Client, tenantID, projectID, leaderboardID string) error {
	return rdb.Del(ctx, scoreKey(tenantID, projectID, leaderboardID), metaKey(tenantID, projectID, leaderboardID)).Err()
}
