package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rankforge/leaderboard/internal/model"
)

// UsageRepository backs the quota subsystem's month-to-date request count
// and the per-day score-update/read counters.
type UsageRepository interface {
	IncrScoreUpdates(ctx context.Context, tenantID, projectID string, date time.Time, n int64) error
	IncrLeaderboardReads(ctx context.Context, tenantID, projectID string, date time.Time, n int64) error
	SumRequestsSince(ctx context.Context, tenantID string, since time.Time) (int64, error)
	GetByDate(ctx context.Context, tenantID, projectID string, date time.Time) (*model.UsageRecord, error)
}

type UsageRepositoryImpl struct {
	db *sqlx.DB
}

func NewUsageRepository(db *sqlx.DB) *UsageRepositoryImpl {
	return &UsageRepositoryImpl{db: db}
}

var _ UsageRepository = (*UsageRepositoryImpl)(nil)

func (r *UsageRepositoryImpl) IncrScoreUpdates(ctx context.Context, tenantID, projectID string, date time.Time, n int64) error {
	return r.upsert(ctx, tenantID, projectID, date, n, 0)
}

func (r *UsageRepositoryImpl) IncrLeaderboardReads(ctx context.Context, tenantID, projectID string, date time.Time, n int64) error {
	return r.upsert(ctx, tenantID, projectID, date, 0, n)
}

func (r *UsageRepositoryImpl) upsert(ctx context.Context, tenantID, projectID string, date time.Time, scoreUpdates, reads int64) error {
	d := date.Format("2006-01-02")
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO usage_records
		    (tenant_id, project_id, usage_date, score_updates, leaderboard_reads, total_requests, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
		    score_updates = score_updates + ?,
		    leaderboard_reads = leaderboard_reads + ?,
		    total_requests = total_requests + ?,
		    updated_at = ?
	`, tenantID, projectID, d, scoreUpdates, reads, scoreUpdates+reads, time.Now().UTC(),
		scoreUpdates, reads, scoreUpdates+reads, time.Now().UTC())
	return err
}

// SumRequestsSince aggregates score_updates across a tenant's projects
// from since to now, used by quota.UsageCheck against the monthly request
// limit for the plan. Reads never decrement this quota; only the rate
// limiter gates them.
func (r *UsageRepositoryImpl) SumRequestsSince(ctx context.Context, tenantID string, since time.Time) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, `
		SELECT COALESCE(SUM(score_updates), 0) FROM usage_records
		WHERE tenant_id = ? AND usage_date >= ?
	`, tenantID, since.Format("2006-01-02"))
	return n, err
}

func (r *UsageRepositoryImpl) GetByDate(ctx context.Context, tenantID, projectID string, date time.Time) (*model.UsageRecord, error) {
	var u model.UsageRecord
	err := r.db.GetContext(ctx, &u, `
		SELECT tenant_id, project_id, usage_date, score_updates, leaderboard_reads, total_requests, updated_at
		FROM usage_records WHERE tenant_id = ? AND project_id = ? AND usage_date = ?
	`, tenantID, projectID, date.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	return &u, nil
}
