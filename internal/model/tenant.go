package model

import "time"

// Tenant is the top-level billing and ownership boundary. All projects,
// leaderboards, keys and usage are scoped underneath one.
type Tenant struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at"`
}

// Project scopes leaderboards and API keys within a tenant.
type Project struct {
	ID        string    `db:"id"`
	TenantID  string    `db:"tenant_id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}
