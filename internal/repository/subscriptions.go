package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/rankforge/leaderboard/internal/model"
)

type SubscriptionsRepository interface {
	Insert(ctx context.Context, s model.Subscription) error
	GetActiveByTenant(ctx context.Context, tenantID string) (*model.Subscription, error)
	GetByID(ctx context.Context, id string) (*model.Subscription, error)
	Cancel(ctx context.Context, id string, atPeriodEnd bool) error
}

type SubscriptionsRepositoryImpl struct {
	db *sqlx.DB
}

func NewSubscriptionsRepository(db *sqlx.DB) *SubscriptionsRepositoryImpl {
	return &SubscriptionsRepositoryImpl{db: db}
}

var _ SubscriptionsRepository = (*SubscriptionsRepositoryImpl)(nil)

func (r *SubscriptionsRepositoryImpl) Insert(ctx context.Context, s model.Subscription) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions
		    (id, tenant_id, plan_type, status, period_start, period_end, cancel_at_period_end, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.TenantID, s.PlanType, s.Status, s.PeriodStart, s.PeriodEnd, s.CancelAtPeriodEnd, s.CreatedAt)
	return err
}

func (r *SubscriptionsRepositoryImpl) GetActiveByTenant(ctx context.Context, tenantID string) (*model.Subscription, error) {
	var s model.Subscription
	err := r.db.GetContext(ctx, &s, `
		SELECT id, tenant_id, plan_type, status, period_start, period_end, cancel_at_period_end, created_at
		FROM subscriptions WHERE tenant_id = ? AND status = 'active' LIMIT 1
	`, tenantID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubscriptionsRepositoryImpl) GetByID(ctx context.Context, id string) (*model.Subscription, error) {
	var s model.Subscription
	err := r.db.GetContext(ctx, &s, `
		SELECT id, tenant_id, plan_type, status, period_start, period_end, cancel_at_period_end, created_at
		FROM subscriptions WHERE id = ?
	`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubscriptionsRepositoryImpl) Cancel(ctx context.Context, id string, atPeriodEnd bool) error {
	if atPeriodEnd {
		_, err := r.db.ExecContext(ctx, `
			UPDATE subscriptions SET cancel_at_period_end = 1 WHERE id = ?
		`, id)
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions SET status = 'cancelled', cancel_at_period_end = 1 WHERE id = ?
	`, id)
	return err
}
