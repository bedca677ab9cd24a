package model

import "time"

// SortOrder determines whether rank 1 is the highest or lowest score.
type SortOrder string

const (
	SortDesc SortOrder = "desc"
	SortAsc  SortOrder = "asc"
)

func (s SortOrder) Valid() bool { return s == SortDesc || s == SortAsc }

// UpdateMode governs how an incoming score combines with the stored one.
type UpdateMode string

const (
	ModeReplace   UpdateMode = "replace"
	ModeIncrement UpdateMode = "increment"
	ModeBest      UpdateMode = "best"
)

func (m UpdateMode) Valid() bool {
	switch m {
	case ModeReplace, ModeIncrement, ModeBest:
		return true
	default:
		return false
	}
}

// Leaderboard is control-plane metadata for one sorted-set namespace.
type Leaderboard struct {
	ID             string         `db:"id"`
	ProjectID      string         `db:"project_id"`
	TenantID       string         `db:"tenant_id"`
	Name           string         `db:"name"`
	Description    string         `db:"description"`
	SortOrder      SortOrder      `db:"sort_order"`
	UpdateMode     UpdateMode     `db:"update_mode"`
	ResetSchedule  string         `db:"reset_schedule"`
	TTLDays        int            `db:"ttl_days"`
	IsActive       bool           `db:"is_active"`
	Metadata       JSONMap        `db:"metadata"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

// Season is a control-plane aggregation window over a leaderboard. It has no
// sorted-set side effects.
type Season struct {
	ID            string    `db:"id"`
	LeaderboardID string    `db:"leaderboard_id"`
	Name          string    `db:"name"`
	StartDate     time.Time `db:"start_date"`
	EndDate       time.Time `db:"end_date"`
	IsActive      bool      `db:"is_active"`
	Metadata      JSONMap   `db:"metadata"`
	CreatedAt     time.Time `db:"created_at"`
}
