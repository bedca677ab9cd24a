package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/rankforge/leaderboard/internal/clock"
	"github.com/rankforge/leaderboard/internal/model"
	"github.com/rankforge/leaderboard/internal/repository"
)

// LimitCheck reports one dimension's usage against its plan ceiling.
type LimitCheck struct {
	Used       int64
	Limit      int64
	WithinLimit bool
}

// UsageCheck is the conjunction of the three monthly quota dimensions: the
// tenant is within quota only if all three are within limit.
type UsageCheck struct {
	Requests     LimitCheck
	Leaderboards LimitCheck
	ApiKeys      LimitCheck
	WithinLimit  bool
}

type Service struct {
	usage        repository.UsageRepository
	leaderboards repository.LeaderboardsRepository
	apiKeys      repository.ApiKeysRepository
	projects     repository.ProjectsRepository
	clock        clock.Clock
}

func New(usage repository.UsageRepository, leaderboards repository.LeaderboardsRepository, apiKeys repository.ApiKeysRepository, projects repository.ProjectsRepository, clk clock.Clock) *Service {
	return &Service{usage: usage, leaderboards: leaderboards, apiKeys: apiKeys, projects: projects, clock: clk}
}

// Check evaluates a tenant's current usage against its plan's monthly
// limits. Requests are measured from the start of the current calendar
// month; leaderboard and api key counts are point-in-time, not monthly.
func (s *Service) Check(ctx context.Context, tenantID, projectID string, plan model.PlanType) (UsageCheck, error) {
	limits := model.Limits(plan)
	now := s.clock.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	requestsUsed, err := s.usage.SumRequestsSince(ctx, tenantID, monthStart)
	if err != nil {
		return UsageCheck{}, fmt.Errorf("sum requests: %w", err)
	}
	leaderboardCount, err := s.leaderboards.CountByProject(ctx, projectID)
	if err != nil {
		return UsageCheck{}, fmt.Errorf("count leaderboards: %w", err)
	}
	apiKeyCount, err := s.apiKeys.CountActiveByProject(ctx, projectID)
	if err != nil {
		return UsageCheck{}, fmt.Errorf("count api keys: %w", err)
	}

	requests := LimitCheck{Used: requestsUsed, Limit: limits.Requests, WithinLimit: requestsUsed < limits.Requests}
	leaderboards := LimitCheck{Used: leaderboardCount, Limit: limits.Leaderboards, WithinLimit: leaderboardCount < limits.Leaderboards}
	apiKeys := LimitCheck{Used: apiKeyCount, Limit: limits.ApiKeys, WithinLimit: apiKeyCount < limits.ApiKeys}

	return UsageCheck{
		Requests:     requests,
		Leaderboards: leaderboards,
		ApiKeys:      apiKeys,
		WithinLimit:  requests.WithinLimit && leaderboards.WithinLimit && apiKeys.WithinLimit,
	}, nil
}

// RecordUsage persists a day's worth of score-update and leaderboard-read
// counts into the monthly rollup used by Check.
func (s *Service) RecordUsage(ctx context.Context, tenantID, projectID string, scoreUpdates, leaderboardReads int64) error {
	now := s.clock.Now()
	if scoreUpdates > 0 {
		if err := s.usage.IncrScoreUpdates(ctx, tenantID, projectID, now, scoreUpdates); err != nil {
			return fmt.Errorf("incr score updates: %w", err)
		}
	}
	if leaderboardReads > 0 {
		if err := s.usage.IncrLeaderboardReads(ctx, tenantID, projectID, now, leaderboardReads); err != nil {
			return fmt.Errorf("incr leaderboard reads: %w", err)
		}
	}
	return nil
}

// RequestsThisMonth reports a tenant's month-to-date request count, the
// same dimension Check reads for the Requests limit, without requiring a
// plan or the other two dimensions' project scope.
func (s *Service) RequestsThisMonth(ctx context.Context, tenantID string) (int64, error) {
	now := s.clock.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return s.usage.SumRequestsSince(ctx, tenantID, monthStart)
}

// CheckTenant is Check without a single project in scope: it sums the
// leaderboard and api key dimensions across every project the tenant owns,
// for callers (like the subscription-keyed usage-check route) that only
// have a tenant id, not a project id, to work with.
func (s *Service) CheckTenant(ctx context.Context, tenantID string, plan model.PlanType) (UsageCheck, error) {
	limits := model.Limits(plan)
	now := s.clock.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	requestsUsed, err := s.usage.SumRequestsSince(ctx, tenantID, monthStart)
	if err != nil {
		return UsageCheck{}, fmt.Errorf("sum requests: %w", err)
	}

	projects, err := s.projects.ListByTenant(ctx, tenantID)
	if err != nil {
		return UsageCheck{}, fmt.Errorf("list tenant projects: %w", err)
	}

	var leaderboardCount, apiKeyCount int64
	for _, p := range projects {
		n, err := s.leaderboards.CountByProject(ctx, p.ID)
		if err != nil {
			return UsageCheck{}, fmt.Errorf("count leaderboards for project %s: %w", p.ID, err)
		}
		leaderboardCount += n

		n, err = s.apiKeys.CountActiveByProject(ctx, p.ID)
		if err != nil {
			return UsageCheck{}, fmt.Errorf("count api keys for project %s: %w", p.ID, err)
		}
		apiKeyCount += n
	}

	requests := LimitCheck{Used: requestsUsed, Limit: limits.Requests, WithinLimit: requestsUsed < limits.Requests}
	leaderboards := LimitCheck{Used: leaderboardCount, Limit: limits.Leaderboards, WithinLimit: leaderboardCount < limits.Leaderboards}
	apiKeys := LimitCheck{Used: apiKeyCount, Limit: limits.ApiKeys, WithinLimit: apiKeyCount < limits.ApiKeys}

	return UsageCheck{
		Requests:     requests,
		Leaderboards: leaderboards,
		ApiKeys:      apiKeys,
		WithinLimit:  requests.WithinLimit && leaderboards.WithinLimit && apiKeys.WithinLimit,
	}, nil
}
