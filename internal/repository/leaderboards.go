package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/rankforge/leaderboard/internal/model"
)

type LeaderboardsRepository interface {
	Insert(ctx context.Context, lb model.Leaderboard) error
	GetByID(ctx context.Context, id string) (*model.Leaderboard, error)
	GetByIDAndProject(ctx context.Context, id, projectID string) (*model.Leaderboard, error)
	ListByProject(ctx context.Context, projectID string) ([]model.Leaderboard, error)
	Update(ctx context.Context, lb model.Leaderboard) error
	Delete(ctx context.Context, id string) error
	CountByProject(ctx context.Context, projectID string) (int64, error)
}

type LeaderboardsRepositoryImpl struct {
	db *sqlx.DB
}

func NewLeaderboardsRepository(db *sqlx.DB) *LeaderboardsRepositoryImpl {
	return &LeaderboardsRepositoryImpl{db: db}
}

var _ LeaderboardsRepository = (*LeaderboardsRepositoryImpl)(nil)

const leaderboardColumns = `
	id, project_id, tenant_id, name, description, sort_order, update_mode,
	reset_schedule, ttl_days, is_active, metadata, created_at, updated_at
`

func (r *LeaderboardsRepositoryImpl) Insert(ctx context.Context, lb model.Leaderboard) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO leaderboards (`+leaderboardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		lb.ID, lb.ProjectID, lb.TenantID, lb.Name, lb.Description, lb.SortOrder, lb.UpdateMode,
		lb.ResetSchedule, lb.TTLDays, lb.IsActive, lb.Metadata, lb.CreatedAt, lb.UpdatedAt,
	)
	return err
}

func (r *LeaderboardsRepositoryImpl) GetByID(ctx context.Context, id string) (*model.Leaderboard, error) {
	var lb model.Leaderboard
	err := r.db.GetContext(ctx, &lb, `SELECT `+leaderboardColumns+` FROM leaderboards WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lb, nil
}

func (r *LeaderboardsRepositoryImpl) GetByIDAndProject(ctx context.Context, id, projectID string) (*model.Leaderboard, error) {
	var lb model.Leaderboard
	err := r.db.GetContext(ctx, &lb, `
		SELECT `+leaderboardColumns+` FROM leaderboards WHERE id = ? AND project_id = ?
	`, id, projectID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lb, nil
}

func (r *LeaderboardsRepositoryImpl) ListByProject(ctx context.Context, projectID string) ([]model.Leaderboard, error) {
	var lbs []model.Leaderboard
	err := r.db.SelectContext(ctx, &lbs, `
		SELECT `+leaderboardColumns+` FROM leaderboards WHERE project_id = ? ORDER BY created_at
	`, projectID)
	return lbs, err
}

func (r *LeaderboardsRepositoryImpl) Update(ctx context.Context, lb model.Leaderboard) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE leaderboards SET
			name = ?, description = ?, sort_order = ?, update_mode = ?,
			reset_schedule = ?, ttl_days = ?, is_active = ?, metadata = ?, updated_at = ?
		WHERE id = ?
	`, lb.Name, lb.Description, lb.SortOrder, lb.UpdateMode, lb.ResetSchedule,
		lb.TTLDays, lb.IsActive, lb.Metadata, lb.UpdatedAt, lb.ID)
	return err
}

func (r *LeaderboardsRepositoryImpl) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM leaderboards WHERE id = ?`, id)
	return err
}

func (r *LeaderboardsRepositoryImpl) CountByProject(ctx context.Context, projectID string) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM leaderboards WHERE project_id = ?`, projectID)
	return n, err
}
