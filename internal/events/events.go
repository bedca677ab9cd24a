// Package events defines the durable event subjects for the leaderboard
// platform's stream, and a publisher that never fails the originating
// request.
package events

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/rankforge/leaderboard/internal/kafka"
)

const (
	SubjectScoreUpdated       = "score.updated"
	SubjectLeaderboardCreated = "leaderboard.created"
	SubjectLeaderboardDeleted = "leaderboard.deleted"
)

// ScoreUpdated is the score.updated payload. It carries the submitted
// score, not the post-update absolute score; Score is a delta only when
// Increment is true.
type ScoreUpdated struct {
	TenantID      string    `json:"tenantId"`
	ProjectID     string    `json:"projectId"`
	LeaderboardID string    `json:"leaderboardId"`
	UserID        string    `json:"userId"`
	Score         float64   `json:"score"`
	Increment     bool      `json:"increment"`
	Timestamp     time.Time `json:"timestamp"`
}

// LeaderboardCreated is emitted on creation and re-emitted whenever an
// update mutates a field with a sorted-set-visible representation.
type LeaderboardCreated struct {
	Type          string     `json:"type"`
	LeaderboardID string     `json:"leaderboardId"`
	ProjectID     string     `json:"projectId"`
	TenantID      string     `json:"tenantId"`
	Name          string     `json:"name"`
	SortOrder     string     `json:"sortOrder"`
	UpdateMode    string     `json:"updateMode"`
	TTLDays       *int       `json:"ttlDays,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
}

type LeaderboardDeleted struct {
	Type          string    `json:"type"`
	LeaderboardID string    `json:"leaderboardId"`
	ProjectID     string    `json:"projectId"`
	TenantID      string    `json:"tenantId"`
	Name          string    `json:"name"`
	Timestamp     time.Time `json:"timestamp"`
}

// Publisher publishes to the durable stream. A publish failure is logged
// and swallowed: the sorted-set store is the source of truth for real-time
// ranking, so the hot path must never fail because the stream is down.
type Publisher struct {
	producer *kafka.Producer
	log      *zap.Logger
}

func NewPublisher(producer *kafka.Producer, log *zap.Logger) *Publisher {
	return &Publisher{producer: producer, log: log}
}

// PublishScoreUpdated is called synchronously from the scoring hot path but
// hands off to a background context with its own deadline, independent of
// the client request context, so client disconnects don't cut it short.
func (p *Publisher) PublishScoreUpdated(ctx context.Context, ev ScoreUpdated) {
	p.publish(ctx, SubjectScoreUpdated, ev.LeaderboardID+":"+ev.UserID, ev)
}

func (p *Publisher) PublishLeaderboardCreated(ctx context.Context, ev LeaderboardCreated) {
	ev.Type = SubjectLeaderboardCreated
	p.publish(ctx, SubjectLeaderboardCreated, ev.LeaderboardID, ev)
}

func (p *Publisher) PublishLeaderboardDeleted(ctx context.Context, ev LeaderboardDeleted) {
	ev.Type = SubjectLeaderboardDeleted
	p.publish(ctx, SubjectLeaderboardDeleted, ev.LeaderboardID, ev)
}

func (p *Publisher) publish(ctx context.Context, subject, key string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		p.log.Error("marshal event failed", zap.String("subject", subject), zap.Error(err))
		return
	}

	bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.producer.Publish(bgCtx, subject, key, body); err != nil {
		p.log.Warn("publish event failed, dropping", zap.String("subject", subject), zap.Error(err))
	}
}
