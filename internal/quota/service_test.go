package quota

import (
	"context"
	"testing"
	"time"

	"github.com/rankforge/leaderboard/internal/clock"
	"github.com/rankforge/leaderboard/internal/model"
)

type fakeUsage struct {
	requestsByTenant map[string]int64
	scoreUpdates     int64
	leaderboardReads int64
}

func newFakeUsage() *fakeUsage { return &fakeUsage{requestsByTenant: map[string]int64{}} }

func (f *fakeUsage) SumRequestsSince(ctx context.Context, tenantID string, since time.Time) (int64, error) {
	return f.requestsByTenant[tenantID], nil
}
func (f *fakeUsage) IncrScoreUpdates(ctx context.Context, tenantID, projectID string, date time.Time, n int64) error {
	f.scoreUpdates += n
	return nil
}
func (f *fakeUsage) IncrLeaderboardReads(ctx context.Context, tenantID, projectID string, date time.Time, n int64) error {
	f.leaderboardReads += n
	return nil
}
func (f *fakeUsage) GetByDate(ctx context.Context, tenantID, projectID string, date time.Time) (*model.UsageRecord, error) {
	return nil, nil
}

type fakeLeaderboards struct{ countByProject map[string]int64 }

func newFakeLeaderboards() *fakeLeaderboards {
	return &fakeLeaderboards{countByProject: map[string]int64{}}
}

func (f *fakeLeaderboards) Insert(ctx context.Context, lb model.Leaderboard) error { return nil }
func (f *fakeLeaderboards) GetByID(ctx context.Context, id string) (*model.Leaderboard, error) {
	return nil, nil
}
func (f *fakeLeaderboards) GetByIDAndProject(ctx context.Context, id, projectID string) (*model.Leaderboard, error) {
	return nil, nil
}
func (f *fakeLeaderboards) ListByProject(ctx context.Context, projectID string) ([]model.Leaderboard, error) {
	return nil, nil
}
func (f *fakeLeaderboards) Update(ctx context.Context, lb model.Leaderboard) error { return nil }
func (f *fakeLeaderboards) Delete(ctx context.Context, id string) error            { return nil }
func (f *fakeLeaderboards) CountByProject(ctx context.Context, projectID string) (int64, error) {
	return f.countByProject[projectID], nil
}

type fakeApiKeysCount struct{ countByProject map[string]int64 }

func (f *fakeApiKeysCount) Insert(ctx context.Context, k model.ApiKey) error { return nil }
func (f *fakeApiKeysCount) GetByID(ctx context.Context, id string) (*model.ApiKey, error) {
	return nil, nil
}
func (f *fakeApiKeysCount) GetActiveByLookupHash(ctx context.Context, lookupHash string) (*model.ApiKey, error) {
	return nil, nil
}
func (f *fakeApiKeysCount) ListByProject(ctx context.Context, projectID string) ([]model.ApiKey, error) {
	return nil, nil
}
func (f *fakeApiKeysCount) Revoke(ctx context.Context, id string, at time.Time) error { return nil }
func (f *fakeApiKeysCount) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	return nil
}
func (f *fakeApiKeysCount) CountActiveByProject(ctx context.Context, projectID string) (int64, error) {
	return f.countByProject[projectID], nil
}

type fakeProjects struct{ byTenant map[string][]model.Project }

func (f *fakeProjects) Insert(ctx context.Context, p model.Project) error { return nil }
func (f *fakeProjects) GetByID(ctx context.Context, id string) (*model.Project, error) {
	return nil, nil
}
func (f *fakeProjects) ListByTenant(ctx context.Context, tenantID string) ([]model.Project, error) {
	return f.byTenant[tenantID], nil
}

func newTestService(requests, leaderboards, apiKeys int64) (*Service, *fakeUsage) {
	usage := newFakeUsage()
	usage.requestsByTenant["tenant-1"] = requests
	lbs := newFakeLeaderboards()
	lbs.countByProject["project-1"] = leaderboards
	keys := &fakeApiKeysCount{countByProject: map[string]int64{"project-1": apiKeys}}
	projects := &fakeProjects{byTenant: map[string][]model.Project{
		"tenant-1": {{ID: "project-1", TenantID: "tenant-1"}},
	}}
	svc := New(usage, lbs, keys, projects, clock.NewFixed(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)))
	return svc, usage
}

func TestCheckWithinAllLimits(t *testing.T) {
	svc, _ := newTestService(100, 1, 1)
	check, err := svc.Check(context.Background(), "tenant-1", "project-1", model.PlanFree)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !check.WithinLimit {
		t.Fatalf("expected within limit, got %+v", check)
	}
}

func TestCheckIsAConjunctionOfAllThreeDimensions(t *testing.T) {
	cases := []struct {
		name                     string
		requests, leaderboards, apiKeys int64
		wantWithin               bool
	}{
		{"requests over limit", model.Limits(model.PlanFree).Requests, 0, 0, false},
		{"leaderboards over limit", 0, model.Limits(model.PlanFree).Leaderboards, 0, false},
		{"api keys over limit", 0, 0, model.Limits(model.PlanFree).ApiKeys, false},
		{"all comfortably under", 0, 0, 0, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			svc, _ := newTestService(c.requests, c.leaderboards, c.apiKeys)
			check, err := svc.Check(context.Background(), "tenant-1", "project-1", model.PlanFree)
			if err != nil {
				t.Fatalf("check: %v", err)
			}
			if check.WithinLimit != c.wantWithin {
				t.Fatalf("expected WithinLimit=%v, got %+v", c.wantWithin, check)
			}
		})
	}
}

func TestCheckTenantSumsAcrossAllProjects(t *testing.T) {
	usage := newFakeUsage()
	usage.requestsByTenant["tenant-1"] = 10
	lbs := newFakeLeaderboards()
	lbs.countByProject["project-1"] = model.Limits(model.PlanFree).Leaderboards - 1
	lbs.countByProject["project-2"] = 1
	keys := &fakeApiKeysCount{countByProject: map[string]int64{"project-1": 0, "project-2": 0}}
	projects := &fakeProjects{byTenant: map[string][]model.Project{
		"tenant-1": {{ID: "project-1", TenantID: "tenant-1"}, {ID: "project-2", TenantID: "tenant-1"}},
	}}
	svc := New(usage, lbs, keys, projects, clock.NewFixed(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)))

	check, err := svc.CheckTenant(context.Background(), "tenant-1", model.PlanFree)
	if err != nil {
		t.Fatalf("check tenant: %v", err)
	}
	if check.WithinLimit {
		t.Fatalf("expected the summed leaderboard count across both projects to breach the limit, got %+v", check)
	}
	if check.Leaderboards.Used != model.Limits(model.PlanFree).Leaderboards {
		t.Fatalf("expected leaderboard count summed across projects, got %d", check.Leaderboards.Used)
	}
}

func TestRecordUsageSkipsZeroCounters(t *testing.T) {
	svc, usage := newTestService(0, 0, 0)

	if err := svc.RecordUsage(context.Background(), "tenant-1", "project-1", 5, 0); err != nil {
		t.Fatalf("record usage: %v", err)
	}
	if usage.scoreUpdates != 5 {
		t.Fatalf("expected score updates incremented, got %d", usage.scoreUpdates)
	}
	if usage.leaderboardReads != 0 {
		t.Fatalf("expected leaderboard reads left untouched, got %d", usage.leaderboardReads)
	}

	if err := svc.RecordUsage(context.Background(), "tenant-1", "project-1", 0, 3); err != nil {
		t.Fatalf("record usage: %v", err)
	}
	if usage.leaderboardReads != 3 {
		t.Fatalf("expected leaderboard reads incremented, got %d", usage.leaderboardReads)
	}
}
