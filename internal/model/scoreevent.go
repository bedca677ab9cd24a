package model

import "time"

// ScoreEvent is an immutable, append-only record of one score submission,
// projected by the Worker from the `score.updated` stream.
type ScoreEvent struct {
	ID            string    `db:"id"`
	TenantID      string    `db:"tenant_id"`
	ProjectID     string    `db:"project_id"`
	LeaderboardID string    `db:"leaderboard_id"`
	UserID        string    `db:"user_id"`
	Score         float64   `db:"score"`
	Increment     bool      `db:"increment_flag"`
	CreatedAt     time.Time `db:"created_at"`
}
