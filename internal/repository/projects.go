package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/rankforge/leaderboard/internal/model"
)

type ProjectsRepository interface {
	Insert(ctx context.Context, p model.Project) error
	GetByID(ctx context.Context, id string) (*model.Project, error)
	ListByTenant(ctx context.Context, tenantID string) ([]model.Project, error)
}

type ProjectsRepositoryImpl struct {
	db *sqlx.DB
}

func NewProjectsRepository(db *sqlx.DB) *ProjectsRepositoryImpl {
	return &ProjectsRepositoryImpl{db: db}
}

var _ ProjectsRepository = (*ProjectsRepositoryImpl)(nil)

func (r *ProjectsRepositoryImpl) Insert(ctx context.Context, p model.Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (id, tenant_id, name, created_at) VALUES (?, ?, ?, ?)
	`, p.ID, p.TenantID, p.Name, p.CreatedAt)
	return err
}

func (r *ProjectsRepositoryImpl) GetByID(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	err := r.db.GetContext(ctx, &p, `SELECT id, tenant_id, name, created_at FROM projects WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProjectsRepositoryImpl) ListByTenant(ctx context.Context, tenantID string) ([]model.Project, error) {
	var ps []model.Project
	err := r.db.SelectContext(ctx, &ps, `
		SELECT id, tenant_id, name, created_at FROM projects WHERE tenant_id = ? ORDER BY created_at
	`, tenantID)
	return ps, err
}
