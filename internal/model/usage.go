package model

import "time"

// UsageRecord is the daily, per-project usage rollup used for monthly quota
// admission control. One row per (tenant, project, date).
type UsageRecord struct {
	TenantID        string    `db:"tenant_id"`
	ProjectID       string    `db:"project_id"`
	Date            string    `db:"usage_date"` // YYYY-MM-DD, UTC
	ScoreUpdates    int64     `db:"score_updates"`
	LeaderboardReads int64    `db:"leaderboard_reads"`
	TotalRequests   int64     `db:"total_requests"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// PlanLimits are the monthly quota ceilings for one plan tier.
type PlanLimits struct {
	Requests      int64
	Leaderboards  int64
	ApiKeys       int64
}

// Limits returns the monthly quota ceilings for a plan tier.
func Limits(p PlanType) PlanLimits {
	switch p {
	case PlanPro:
		return PlanLimits{Requests: 1_000_000, Leaderboards: 50, ApiKeys: 10}
	case PlanEnterprise:
		return PlanLimits{Requests: 10_000_000, Leaderboards: 9999, ApiKeys: 9999}
	default: // PlanFree and unknown fall back to the most conservative tier
		return PlanLimits{Requests: 10_000, Leaderboards: 5, ApiKeys: 2}
	}
}

// BucketParams are the token-bucket parameters for one plan tier.
type BucketParams struct {
	Capacity int64
	RefillPerSec float64
}

// Bucket returns the token-bucket rate-limit parameters for a plan tier.
func Bucket(p PlanType) BucketParams {
	switch p {
	case PlanPro:
		return BucketParams{Capacity: 100, RefillPerSec: 50}
	case PlanEnterprise:
		return BucketParams{Capacity: 500, RefillPerSec: 200}
	default:
		return BucketParams{Capacity: 10, RefillPerSec: 1}
	}
}
