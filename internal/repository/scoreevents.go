package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/rankforge/leaderboard/internal/model"
)

// ScoreEventsRepository is the worker's write path into the durable
// relational store.
type ScoreEventsRepository interface {
	Insert(ctx context.Context, ev model.ScoreEvent) error
	ExistsByID(ctx context.Context, id string) (bool, error)
	ListByLeaderboard(ctx context.Context, leaderboardID string, limit, offset int) ([]model.ScoreEvent, error)
}

type ScoreEventsRepositoryImpl struct {
	db *sqlx.DB
}

func NewScoreEventsRepository(db *sqlx.DB) *ScoreEventsRepositoryImpl {
	return &ScoreEventsRepositoryImpl{db: db}
}

var _ ScoreEventsRepository = (*ScoreEventsRepositoryImpl)(nil)

const scoreEventColumns = `
	id, tenant_id, project_id, leaderboard_id, user_id, score, increment_flag, created_at
`

// Insert ignores a row whose id already exists. The worker assigns a fresh
// id to every delivery, so a redelivered score.updated message appends a
// second row rather than being deduplicated.
func (r *ScoreEventsRepositoryImpl) Insert(ctx context.Context, ev model.ScoreEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO score_events (`+scoreEventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE id = id
	`, ev.ID, ev.TenantID, ev.ProjectID, ev.LeaderboardID, ev.UserID, ev.Score, ev.Increment, ev.CreatedAt)
	return err
}

func (r *ScoreEventsRepositoryImpl) ExistsByID(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM score_events WHERE id = ?`, id)
	return n > 0, err
}

func (r *ScoreEventsRepositoryImpl) ListByLeaderboard(ctx context.Context, leaderboardID string, limit, offset int) ([]model.ScoreEvent, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	var evs []model.ScoreEvent
	err := r.db.SelectContext(ctx, &evs, `
		SELECT `+scoreEventColumns+`
		FROM score_events WHERE leaderboard_id = ?
		ORDER BY created_at DESC LIMIT ? OFFSET ?
	`, leaderboardID, limit, offset)
	return evs, err
}

// CHScoreEventsRepository mirrors score.updated events into ClickHouse for
// cheap historical range scans, the same operational/reporting split the
// teacher uses for messages vs messages_latest.
type CHScoreEventsRepository interface {
	Insert(ctx context.Context, ev model.ScoreEvent) error
	ListByLeaderboard(ctx context.Context, leaderboardID string, limit, offset int) ([]model.ScoreEvent, error)
}

type chScoreEventsRepository struct {
	ch *sqlx.DB
}

func NewCHScoreEventsRepository(ch *sqlx.DB) CHScoreEventsRepository {
	return &chScoreEventsRepository{ch: ch}
}

func (r *chScoreEventsRepository) Insert(ctx context.Context, ev model.ScoreEvent) error {
	_, err := r.ch.ExecContext(ctx, `
		INSERT INTO lbplat.score_events_latest
		    (id, tenant_id, project_id, leaderboard_id, user_id, score, increment_flag, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.TenantID, ev.ProjectID, ev.LeaderboardID, ev.UserID, ev.Score, ev.Increment, ev.CreatedAt)
	return err
}

func (r *chScoreEventsRepository) ListByLeaderboard(ctx context.Context, leaderboardID string, limit, offset int) ([]model.ScoreEvent, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	var evs []model.ScoreEvent
	err := r.ch.SelectContext(ctx, &evs, `
		SELECT id, tenant_id, project_id, leaderboard_id, user_id, score, increment_flag, created_at
		FROM lbplat.score_events_latest
		WHERE leaderboard_id = ?
		ORDER BY created_at DESC LIMIT ? OFFSET ?
	`, leaderboardID, limit, offset)
	return evs, err
}
