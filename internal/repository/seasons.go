package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/rankforge/leaderboard/internal/model"
)

type SeasonsRepository interface {
	Insert(ctx context.Context, s model.Season) error
	GetByID(ctx context.Context, id string) (*model.Season, error)
	ListByLeaderboard(ctx context.Context, leaderboardID string) ([]model.Season, error)
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

type SeasonsRepositoryImpl struct {
	db *sqlx.DB
}

func NewSeasonsRepository(db *sqlx.DB) *SeasonsRepositoryImpl {
	return &SeasonsRepositoryImpl{db: db}
}

var _ SeasonsRepository = (*SeasonsRepositoryImpl)(nil)

const seasonColumns = `id, leaderboard_id, name, start_date, end_date, is_active, metadata, created_at`

func (r *SeasonsRepositoryImpl) Insert(ctx context.Context, s model.Season) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO seasons (`+seasonColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.LeaderboardID, s.Name, s.StartDate, s.EndDate, s.IsActive, s.Metadata, s.CreatedAt)
	return err
}

func (r *SeasonsRepositoryImpl) GetByID(ctx context.Context, id string) (*model.Season, error) {
	var s model.Season
	err := r.db.GetContext(ctx, &s, `SELECT `+seasonColumns+` FROM seasons WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SeasonsRepositoryImpl) ListByLeaderboard(ctx context.Context, leaderboardID string) ([]model.Season, error) {
	var ss []model.Season
	err := r.db.SelectContext(ctx, &ss, `
		SELECT `+seasonColumns+` FROM seasons WHERE leaderboard_id = ? ORDER BY start_date
	`, leaderboardID)
	return ss, err
}

func (r *SeasonsRepositoryImpl) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE seasons SET is_active = ? WHERE id = ?`, active, id)
	return err
}

func (r *SeasonsRepositoryImpl) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM seasons WHERE id = ?`, id)
	return err
}
