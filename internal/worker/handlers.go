package worker

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rankforge/leaderboard/internal/events"
	"github.com/rankforge/leaderboard/internal/model"
	"github.com/rankforge/leaderboard/internal/repository"
	"github.com/rankforge/leaderboard/internal/scoring"
	"github.com/rankforge/leaderboard/internal/util"
)

// ScoreUpdatedHandler mirrors every score.updated event into the
// relational store and its ClickHouse analytics mirror. Each delivery gets
// a fresh event id, so a redelivery after a mid-flight crash appends
// duplicate rows to the append-only log.
func ScoreUpdatedHandler(scoreEvents repository.ScoreEventsRepository, chScoreEvents repository.CHScoreEventsRepository) Handler {
	return func(ctx context.Context, body []byte) error {
		ev, err := decode[events.ScoreUpdated](body)
		if err != nil {
			return fmt.Errorf("decode score.updated: %w", err)
		}

		row := model.ScoreEvent{
			ID:            util.New(),
			TenantID:      ev.TenantID,
			ProjectID:     ev.ProjectID,
			LeaderboardID: ev.LeaderboardID,
			UserID:        ev.UserID,
			Score:         ev.Score,
			Increment:     ev.Increment,
			CreatedAt:     ev.Timestamp,
		}
		if err := scoreEvents.Insert(ctx, row); err != nil {
			return fmt.Errorf("insert score event: %w", err)
		}
		if chScoreEvents != nil {
			if err := chScoreEvents.Insert(ctx, row); err != nil {
				return fmt.Errorf("mirror score event to clickhouse: %w", err)
			}
		}
		return nil
	}
}

// LeaderboardCreatedHandler upserts the sorted-set-visible metadata hash
// so the scoring engine can pick up a new or changed leaderboard without
// ever querying MySQL on the hot path.
func LeaderboardCreatedHandler(rdb *redis.Client) Handler {
	return func(ctx context.Context, body []byte) error {
		ev, err := decode[events.LeaderboardCreated](body)
		if err != nil {
			return fmt.Errorf("decode leaderboard.created: %w", err)
		}

		md := scoring.Metadata{
			TenantID:   ev.TenantID,
			ProjectID:  ev.ProjectID,
			Name:       ev.Name,
			SortOrder:  model.SortOrder(ev.SortOrder),
			UpdateMode: model.UpdateMode(ev.UpdateMode),
			CreatedAt:  ev.Timestamp,
		}
		if ev.TTLDays != nil {
			md.TTLDays = *ev.TTLDays
		}
		if err := scoring.SetMetadata(ctx, rdb, ev.TenantID, ev.ProjectID, ev.LeaderboardID, md); err != nil {
			return fmt.Errorf("sync leaderboard metadata: %w", err)
		}
		return nil
	}
}

// LeaderboardDeletedHandler removes the sorted set and its metadata hash.
func LeaderboardDeletedHandler(rdb *redis.Client) Handler {
	return func(ctx context.Context, body []byte) error {
		ev, err := decode[events.LeaderboardDeleted](body)
		if err != nil {
			return fmt.Errorf("decode leaderboard.deleted: %w", err)
		}
		if err := scoring.DeleteLeaderboardKeys(ctx, rdb, ev.TenantID, ev.ProjectID, ev.LeaderboardID); err != nil {
			return fmt.Errorf("delete leaderboard keys: %w", err)
		}
		return nil
	}
}
