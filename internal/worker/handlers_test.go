package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rankforge/leaderboard/internal/events"
	"github.com/rankforge/leaderboard/internal/model"
)

type fakeScoreEvents struct {
	inserted []model.ScoreEvent
	failNext bool
}

func (f *fakeScoreEvents) Insert(ctx context.Context, ev model.ScoreEvent) error {
	if f.failNext {
		f.failNext = false
		return context.DeadlineExceeded
	}
	f.inserted = append(f.inserted, ev)
	return nil
}
func (f *fakeScoreEvents) ExistsByID(ctx context.Context, id string) (bool, error) {
	for _, ev := range f.inserted {
		if ev.ID == id {
			return true, nil
		}
	}
	return false, nil
}
func (f *fakeScoreEvents) ListByLeaderboard(ctx context.Context, leaderboardID string, limit, offset int) ([]model.ScoreEvent, error) {
	return f.inserted, nil
}

type fakeCHScoreEvents struct {
	inserted []model.ScoreEvent
}

func (f *fakeCHScoreEvents) Insert(ctx context.Context, ev model.ScoreEvent) error {
	f.inserted = append(f.inserted, ev)
	return nil
}
func (f *fakeCHScoreEvents) ListByLeaderboard(ctx context.Context, leaderboardID string, limit, offset int) ([]model.ScoreEvent, error) {
	return f.inserted, nil
}

func marshalScoreUpdated(t *testing.T, ev events.ScoreUpdated) []byte {
	body, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return body
}

func TestScoreUpdatedHandlerInsertsIntoBothStores(t *testing.T) {
	mysqlRepo := &fakeScoreEvents{}
	chRepo := &fakeCHScoreEvents{}
	handler := ScoreUpdatedHandler(mysqlRepo, chRepo)

	body := marshalScoreUpdated(t, events.ScoreUpdated{
		TenantID:      "tenant-1",
		ProjectID:     "project-1",
		LeaderboardID: "lb-1",
		UserID:        "user-1",
		Score:         42,
		Timestamp:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	if err := handler(context.Background(), body); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(mysqlRepo.inserted) != 1 {
		t.Fatalf("expected one row inserted into mysql, got %d", len(mysqlRepo.inserted))
	}
	if len(chRepo.inserted) != 1 {
		t.Fatalf("expected one row mirrored into clickhouse, got %d", len(chRepo.inserted))
	}
	if mysqlRepo.inserted[0].UserID != "user-1" || mysqlRepo.inserted[0].Score != 42 {
		t.Fatalf("unexpected row: %+v", mysqlRepo.inserted[0])
	}
}

func TestScoreUpdatedHandlerSkipsNilClickHouseRepo(t *testing.T) {
	mysqlRepo := &fakeScoreEvents{}
	handler := ScoreUpdatedHandler(mysqlRepo, nil)

	body := marshalScoreUpdated(t, events.ScoreUpdated{
		TenantID: "tenant-1", ProjectID: "project-1", LeaderboardID: "lb-1", UserID: "user-1", Score: 10,
	})

	if err := handler(context.Background(), body); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(mysqlRepo.inserted) != 1 {
		t.Fatalf("expected one row inserted into mysql, got %d", len(mysqlRepo.inserted))
	}
}

func TestScoreUpdatedHandlerPropagatesMySQLFailure(t *testing.T) {
	mysqlRepo := &fakeScoreEvents{failNext: true}
	handler := ScoreUpdatedHandler(mysqlRepo, nil)

	body := marshalScoreUpdated(t, events.ScoreUpdated{LeaderboardID: "lb-1", UserID: "user-1"})
	if err := handler(context.Background(), body); err == nil {
		t.Fatal("expected the handler to surface the mysql insert failure so the message is redelivered")
	}
}

func TestScoreUpdatedHandlerRejectsMalformedBody(t *testing.T) {
	handler := ScoreUpdatedHandler(&fakeScoreEvents{}, nil)
	if err := handler(context.Background(), []byte("not json")); err == nil {
		t.Fatal("expected a decode error for a malformed body")
	}
}
