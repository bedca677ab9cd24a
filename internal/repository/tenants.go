package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/rankforge/leaderboard/internal/model"
)

type TenantsRepository interface {
	Insert(ctx context.Context, t model.Tenant) error
	GetByID(ctx context.Context, id string) (*model.Tenant, error)
	GetByEmail(ctx context.Context, email string) (*model.Tenant, error)
}

type TenantsRepositoryImpl struct {
	db *sqlx.DB
}

func NewTenantsRepository(db *sqlx.DB) *TenantsRepositoryImpl {
	return &TenantsRepositoryImpl{db: db}
}

var _ TenantsRepository = (*TenantsRepositoryImpl)(nil)

func (r *TenantsRepositoryImpl) Insert(ctx context.Context, t model.Tenant) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tenants (id, name, email, created_at) VALUES (?, ?, ?, ?)
	`, t.ID, t.Name, t.Email, t.CreatedAt)
	return err
}

func (r *TenantsRepositoryImpl) GetByID(ctx context.Context, id string) (*model.Tenant, error) {
	var t model.Tenant
	err := r.db.GetContext(ctx, &t, `SELECT id, name, email, created_at FROM tenants WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TenantsRepositoryImpl) GetByEmail(ctx context.Context, email string) (*model.Tenant, error) {
	var t model.Tenant
	err := r.db.GetContext(ctx, &t, `SELECT id, name, email, created_at FROM tenants WHERE email = ?`, email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
