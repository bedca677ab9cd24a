package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/rankforge/leaderboard/internal/apperr"
	"github.com/rankforge/leaderboard/internal/clock"
	"github.com/rankforge/leaderboard/internal/model"
)

type fakeLeaderboards struct{ byID map[string]model.Leaderboard }

func newFakeLeaderboards() *fakeLeaderboards {
	return &fakeLeaderboards{byID: map[string]model.Leaderboard{}}
}

func (f *fakeLeaderboards) Insert(ctx context.Context, lb model.Leaderboard) error {
	f.byID[lb.ID] = lb
	return nil
}
func (f *fakeLeaderboards) GetByID(ctx context.Context, id string) (*model.Leaderboard, error) {
	lb, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return &lb, nil
}
func (f *fakeLeaderboards) GetByIDAndProject(ctx context.Context, id, projectID string) (*model.Leaderboard, error) {
	lb, ok := f.byID[id]
	if !ok || lb.ProjectID != projectID {
		return nil, nil
	}
	return &lb, nil
}
func (f *fakeLeaderboards) ListByProject(ctx context.Context, projectID string) ([]model.Leaderboard, error) {
	var out []model.Leaderboard
	for _, lb := range f.byID {
		if lb.ProjectID == projectID {
			out = append(out, lb)
		}
	}
	return out, nil
}
func (f *fakeLeaderboards) Update(ctx context.Context, lb model.Leaderboard) error {
	f.byID[lb.ID] = lb
	return nil
}
func (f *fakeLeaderboards) Delete(ctx context.Context, id string) error {
	delete(f.byID, id)
	return nil
}
func (f *fakeLeaderboards) CountByProject(ctx context.Context, projectID string) (int64, error) {
	var n int64
	for _, lb := range f.byID {
		if lb.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

type fakeSeasons struct{ byLeaderboard map[string][]model.Season }

func newFakeSeasons() *fakeSeasons { return &fakeSeasons{byLeaderboard: map[string][]model.Season{}} }

func (f *fakeSeasons) Insert(ctx context.Context, s model.Season) error {
	f.byLeaderboard[s.LeaderboardID] = append(f.byLeaderboard[s.LeaderboardID], s)
	return nil
}
func (f *fakeSeasons) GetByID(ctx context.Context, id string) (*model.Season, error) {
	for _, seasons := range f.byLeaderboard {
		for _, s := range seasons {
			if s.ID == id {
				return &s, nil
			}
		}
	}
	return nil, nil
}
func (f *fakeSeasons) ListByLeaderboard(ctx context.Context, leaderboardID string) ([]model.Season, error) {
	return f.byLeaderboard[leaderboardID], nil
}
func (f *fakeSeasons) SetActive(ctx context.Context, id string, active bool) error { return nil }
func (f *fakeSeasons) Delete(ctx context.Context, id string) error                 { return nil }

// newTestService builds a Service with a nil *events.Publisher. Every test
// here must return before reaching a s.pub.Publish* call, since a real
// Publisher would try to dial a Kafka broker.
func newTestService() (*Service, *fakeLeaderboards) {
	lbs := newFakeLeaderboards()
	seasons := newFakeSeasons()
	svc := New(lbs, seasons, nil, clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	return svc, lbs
}

func TestCreateRejectsInvalidSortOrder(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Create(context.Background(), model.Leaderboard{
		SortOrder:  "sideways",
		UpdateMode: model.ModeBest,
	}, 10, 0)
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.BadRequest {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestCreateRejectsInvalidUpdateMode(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Create(context.Background(), model.Leaderboard{
		SortOrder:  model.SortDesc,
		UpdateMode: "whatever",
	}, 10, 0)
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.BadRequest {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestCreateRejectsWhenQuotaExhausted(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Create(context.Background(), model.Leaderboard{
		SortOrder:  model.SortDesc,
		UpdateMode: model.ModeBest,
	}, 5, 5)
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.QuotaExceeded {
		t.Fatalf("expected quota exceeded, got %v", err)
	}
}

func TestGetReturnsNotFound(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Get(context.Background(), "missing", "project-1")
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.NotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateReturnsNotFound(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Update(context.Background(), model.Leaderboard{ID: "missing", SortOrder: model.SortDesc, UpdateMode: model.ModeBest})
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.NotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateRejectsInvalidFields(t *testing.T) {
	svc, lbs := newTestService()
	lbs.byID["lb-1"] = model.Leaderboard{ID: "lb-1", SortOrder: model.SortDesc, UpdateMode: model.ModeBest}

	_, err := svc.Update(context.Background(), model.Leaderboard{ID: "lb-1", SortOrder: "bogus", UpdateMode: model.ModeBest})
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.BadRequest {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestDeleteReturnsNotFound(t *testing.T) {
	svc, _ := newTestService()
	err := svc.Delete(context.Background(), "missing")
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.NotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSortedSetFieldsChanged(t *testing.T) {
	base := model.Leaderboard{
		Name:       "weekly",
		SortOrder:  model.SortDesc,
		UpdateMode: model.ModeBest,
		TTLDays:    7,
	}

	unchanged := base
	unchanged.Description = "a new description"
	unchanged.IsActive = false
	if sortedSetFieldsChanged(base, unchanged) {
		t.Fatal("control-plane-only fields must not trigger a resync")
	}

	renamed := base
	renamed.Name = "weekly-v2"
	if !sortedSetFieldsChanged(base, renamed) {
		t.Fatal("a name change must trigger a resync")
	}

	reordered := base
	reordered.SortOrder = model.SortAsc
	if !sortedSetFieldsChanged(base, reordered) {
		t.Fatal("a sort order change must trigger a resync")
	}

	remoded := base
	remoded.UpdateMode = model.ModeIncrement
	if !sortedSetFieldsChanged(base, remoded) {
		t.Fatal("an update mode change must trigger a resync")
	}

	rettled := base
	rettled.TTLDays = 30
	if !sortedSetFieldsChanged(base, rettled) {
		t.Fatal("a ttl change must trigger a resync")
	}
}

func TestToCreatedEventOmitsZeroTTL(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ev := toCreatedEvent(model.Leaderboard{
		ID:         "lb-1",
		ProjectID:  "project-1",
		TenantID:   "tenant-1",
		Name:       "weekly",
		SortOrder:  model.SortDesc,
		UpdateMode: model.ModeBest,
		TTLDays:    0,
	}, ts)
	if ev.TTLDays != nil {
		t.Fatalf("expected nil TTLDays for a leaderboard with no TTL, got %v", *ev.TTLDays)
	}

	withTTL := toCreatedEvent(model.Leaderboard{TTLDays: 14}, ts)
	if withTTL.TTLDays == nil || *withTTL.TTLDays != 14 {
		t.Fatalf("expected TTLDays=14, got %v", withTTL.TTLDays)
	}
}
