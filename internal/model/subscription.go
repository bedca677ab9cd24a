package model

import "time"

// PlanType is one of the billing tiers; it drives both rate-limit bucket
// parameters (internal/cache) and monthly quota limits (internal/quota).
type PlanType string

const (
	PlanFree       PlanType = "free"
	PlanPro        PlanType = "pro"
	PlanEnterprise PlanType = "enterprise"
)

func (p PlanType) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanEnterprise:
		return true
	default:
		return false
	}
}

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
)

// Subscription binds a tenant to a plan for a billing period. At most one
// row per tenant may have Status == SubscriptionActive.
type Subscription struct {
	ID                 string             `db:"id"`
	TenantID           string             `db:"tenant_id"`
	PlanType           PlanType           `db:"plan_type"`
	Status             SubscriptionStatus `db:"status"`
	PeriodStart        time.Time          `db:"period_start"`
	PeriodEnd          time.Time          `db:"period_end"`
	CancelAtPeriodEnd  bool               `db:"cancel_at_period_end"`
	CreatedAt          time.Time          `db:"created_at"`
}
