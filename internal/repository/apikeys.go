package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rankforge/leaderboard/internal/model"
)

type ApiKeysRepository interface {
	Insert(ctx context.Context, k model.ApiKey) error
	GetByID(ctx context.Context, id string) (*model.ApiKey, error)
	// GetActiveByLookupHash filters revoked keys out at the query layer
	// first, before the caller does its constant-time argon2 compare.
	GetActiveByLookupHash(ctx context.Context, lookupHash string) (*model.ApiKey, error)
	ListByProject(ctx context.Context, projectID string) ([]model.ApiKey, error)
	Revoke(ctx context.Context, id string, at time.Time) error
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
	CountActiveByProject(ctx context.Context, projectID string) (int64, error)
}

type ApiKeysRepositoryImpl struct {
	db *sqlx.DB
}

func NewApiKeysRepository(db *sqlx.DB) *ApiKeysRepositoryImpl {
	return &ApiKeysRepositoryImpl{db: db}
}

var _ ApiKeysRepository = (*ApiKeysRepositoryImpl)(nil)

const apiKeyColumns = `id, project_id, name, lookup_hash, key_hash, last_used_at, revoked_at, created_at`

func (r *ApiKeysRepositoryImpl) Insert(ctx context.Context, k model.ApiKey) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO api_keys (`+apiKeyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, k.ID, k.ProjectID, k.Name, k.LookupHash, k.KeyHash, k.LastUsedAt, k.RevokedAt, k.CreatedAt)
	return err
}

func (r *ApiKeysRepositoryImpl) GetByID(ctx context.Context, id string) (*model.ApiKey, error) {
	var k model.ApiKey
	err := r.db.GetContext(ctx, &k, `SELECT `+apiKeyColumns+` FROM api_keys WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (r *ApiKeysRepositoryImpl) GetActiveByLookupHash(ctx context.Context, lookupHash string) (*model.ApiKey, error) {
	var keys []model.ApiKey
	// revoked_at IS NULL comes first in predicate evaluation order so
	// revoked rows are excluded before we ever reach for the argon2 compare.
	err := r.db.SelectContext(ctx, &keys, `
		SELECT `+apiKeyColumns+`
		FROM api_keys
		WHERE revoked_at IS NULL AND lookup_hash = ?
		LIMIT 1
	`, lookupHash)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}
	return &keys[0], nil
}

func (r *ApiKeysRepositoryImpl) ListByProject(ctx context.Context, projectID string) ([]model.ApiKey, error) {
	var keys []model.ApiKey
	err := r.db.SelectContext(ctx, &keys, `
		SELECT `+apiKeyColumns+` FROM api_keys WHERE project_id = ? ORDER BY created_at
	`, projectID)
	return keys, err
}

func (r *ApiKeysRepositoryImpl) Revoke(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE api_keys SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL
	`, at, id)
	return err
}

func (r *ApiKeysRepositoryImpl) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = ? WHERE id = ?`, at, id)
	return err
}

func (r *ApiKeysRepositoryImpl) CountActiveByProject(ctx context.Context, projectID string) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM api_keys WHERE project_id = ? AND revoked_at IS NULL
	`, projectID)
	return n, err
}
