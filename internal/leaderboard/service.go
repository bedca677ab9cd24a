package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/rankforge/leaderboard/internal/apperr"
	"github.com/rankforge/leaderboard/internal/clock"
	"github.com/rankforge/leaderboard/internal/events"
	"github.com/rankforge/leaderboard/internal/model"
	"github.com/rankforge/leaderboard/internal/repository"
	"github.com/rankforge/leaderboard/internal/util"
)

// Service is the leaderboard and season control plane: creation, listing,
// update, and deletion, each of which keeps the relational row and the
// sorted-set-visible metadata hash in sync via the durable event stream
// rather than a synchronous double write.
type Service struct {
	leaderboards repository.LeaderboardsRepository
	seasons      repository.SeasonsRepository
	pub          *events.Publisher
	clock        clock.Clock
}

func New(leaderboards repository.LeaderboardsRepository, seasons repository.SeasonsRepository, pub *events.Publisher, clk clock.Clock) *Service {
	return &Service{leaderboards: leaderboards, seasons: seasons, pub: pub, clock: clk}
}

// sortedSetFieldsChanged reports whether an update touches a field that
// the sorted-set representation cares about. Only these re-emit
// leaderboard.created to resync the metadata hash; description,
// resetSchedule, isActive and metadata are control-plane-only and never
// read by the scoring engine.
func sortedSetFieldsChanged(old, updated model.Leaderboard) bool {
	return old.Name != updated.Name ||
		old.UpdateMode != updated.UpdateMode ||
		old.SortOrder != updated.SortOrder ||
		old.TTLDays != updated.TTLDays
}

func (s *Service) Create(ctx context.Context, lb model.Leaderboard, limit int64, currentCount int64) (model.Leaderboard, error) {
	if !lb.SortOrder.Valid() {
		return model.Leaderboard{}, apperr.New(apperr.BadRequest, "invalid sortOrder")
	}
	if !lb.UpdateMode.Valid() {
		return model.Leaderboard{}, apperr.New(apperr.BadRequest, "invalid updateMode")
	}
	if currentCount >= limit {
		return model.Leaderboard{}, apperr.WithDetails(apperr.QuotaExceeded, "leaderboard limit reached for plan", map[string]any{
			"limit": limit,
		})
	}

	now := s.clock.Now()
	lb.ID = util.New()
	lb.CreatedAt = now
	lb.UpdatedAt = now
	if lb.Metadata == nil {
		lb.Metadata = model.JSONMap{}
	}

	if err := s.leaderboards.Insert(ctx, lb); err != nil {
		return model.Leaderboard{}, fmt.Errorf("insert leaderboard: %w", err)
	}

	s.pub.PublishLeaderboardCreated(ctx, toCreatedEvent(lb, now))
	return lb, nil
}

func (s *Service) Get(ctx context.Context, id, projectID string) (model.Leaderboard, error) {
	lb, err := s.leaderboards.GetByIDAndProject(ctx, id, projectID)
	if err != nil {
		return model.Leaderboard{}, fmt.Errorf("lookup leaderboard: %w", err)
	}
	if lb == nil {
		return model.Leaderboard{}, apperr.New(apperr.NotFound, "leaderboard not found")
	}
	return *lb, nil
}

func (s *Service) List(ctx context.Context, projectID string) ([]model.Leaderboard, error) {
	lbs, err := s.leaderboards.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list leaderboards: %w", err)
	}
	return lbs, nil
}

// Update applies a partial set of mutations already merged into `updated`
// by the caller, diffs against the stored row to decide whether a resync
// event is needed, and persists.
func (s *Service) Update(ctx context.Context, updated model.Leaderboard) (model.Leaderboard, error) {
	existing, err := s.leaderboards.GetByID(ctx, updated.ID)
	if err != nil {
		return model.Leaderboard{}, fmt.Errorf("lookup leaderboard: %w", err)
	}
	if existing == nil {
		return model.Leaderboard{}, apperr.New(apperr.NotFound, "leaderboard not found")
	}
	if !updated.SortOrder.Valid() || !updated.UpdateMode.Valid() {
		return model.Leaderboard{}, apperr.New(apperr.BadRequest, "invalid leaderboard fields")
	}

	now := s.clock.Now()
	updated.UpdatedAt = now
	needsResync := sortedSetFieldsChanged(*existing, updated)

	if err := s.leaderboards.Update(ctx, updated); err != nil {
		return model.Leaderboard{}, fmt.Errorf("update leaderboard: %w", err)
	}

	if needsResync {
		s.pub.PublishLeaderboardCreated(ctx, toCreatedEvent(updated, now))
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	lb, err := s.leaderboards.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("lookup leaderboard: %w", err)
	}
	if lb == nil {
		return apperr.New(apperr.NotFound, "leaderboard not found")
	}
	if err := s.leaderboards.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete leaderboard: %w", err)
	}

	s.pub.PublishLeaderboardDeleted(ctx, events.LeaderboardDeleted{
		LeaderboardID: lb.ID,
		ProjectID:     lb.ProjectID,
		TenantID:      lb.TenantID,
		Name:          lb.Name,
		Timestamp:     s.clock.Now(),
	})
	return nil
}

func toCreatedEvent(lb model.Leaderboard, ts time.Time) events.LeaderboardCreated {
	var ttl *int
	if lb.TTLDays > 0 {
		ttl = &lb.TTLDays
	}
	return events.LeaderboardCreated{
		LeaderboardID: lb.ID,
		ProjectID:     lb.ProjectID,
		TenantID:      lb.TenantID,
		Name:          lb.Name,
		SortOrder:     string(lb.SortOrder),
		UpdateMode:    string(lb.UpdateMode),
		TTLDays:       ttl,
		Timestamp:     ts,
	}
}

// --- seasons ---

func (s *Service) CreateSeason(ctx context.Context, season model.Season) (model.Season, error) {
	season.ID = util.New()
	season.CreatedAt = s.clock.Now()
	if season.Metadata == nil {
		season.Metadata = model.JSONMap{}
	}
	if err := s.seasons.Insert(ctx, season); err != nil {
		return model.Season{}, fmt.Errorf("insert season: %w", err)
	}
	return season, nil
}

func (s *Service) ListSeasons(ctx context.Context, leaderboardID string) ([]model.Season, error) {
	seasons, err := s.seasons.ListByLeaderboard(ctx, leaderboardID)
	if err != nil {
		return nil, fmt.Errorf("list seasons: %w", err)
	}
	return seasons, nil
}

func (s *Service) SetSeasonActive(ctx context.Context, id string, active bool) error {
	if err := s.seasons.SetActive(ctx, id, active); err != nil {
		return fmt.Errorf("set season active: %w", err)
	}
	return nil
}

func (s *Service) DeleteSeason(ctx context.Context, id string) error {
	if err := s.seasons.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete season: %w", err)
	}
	return nil
}
