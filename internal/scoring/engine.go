package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rankforge/leaderboard/internal/clock"
	"github.com/rankforge/leaderboard/internal/events"
	"github.com/rankforge/leaderboard/internal/model"
)

const (
	maxTopLimit      = 100
	maxNeighborCount = 10
)

// Engine is the real-time scoring core. Every write goes straight to the
// Redis sorted set and is acknowledged before the corresponding
// score.updated event is published; the sorted set is the source of truth
// for ranking, the relational mirror trails behind it.
type Engine struct {
	rdb   *redis.Client
	pub   *events.Publisher
	clock clock.Clock
}

func New(rdb *redis.Client, pub *events.Publisher, clk clock.Clock) *Engine {
	return &Engine{rdb: rdb, pub: pub, clock: clk}
}

// UpdateEntry is a single score submission. Increment, when set, forces
// increment mode for this submission regardless of the leaderboard's
// configured update mode.
type UpdateEntry struct {
	LeaderboardID string
	UserID        string
	Score         float64
	Increment     bool
}

// UpdateResult is one entry's outcome: the score actually landed in the
// sorted set (which, under best mode, may not be the submitted score) and
// the 1-based rank it resolved to immediately after the write.
type UpdateResult struct {
	LeaderboardID string  `json:"leaderboardId"`
	UserID        string  `json:"userId"`
	Score         float64 `json:"score"`
	Rank          int64   `json:"rank"`
}

// Entry is one ranked row as returned by Top or as a neighbor in RankOf.
// Rank is 1-based.
type Entry struct {
	UserID string  `json:"userId"`
	Score  float64 `json:"score"`
	Rank   int64   `json:"rank"`
}

// Neighbors splits a RankOf neighbor listing into entries of strictly
// better rank and strictly worse rank than the looked-up member.
type Neighbors struct {
	Above []Entry `json:"above"`
	Below []Entry `json:"below"`
}

// RankResult is the response shape for RankOf. A member with no score on
// the leaderboard is not an error: Rank and Score are left nil.
type RankResult struct {
	UserID    string     `json:"userId"`
	Rank      *int64     `json:"rank"`
	Score     *float64   `json:"score"`
	Neighbors *Neighbors `json:"neighbors,omitempty"`
}

// effectiveMode resolves the update mode actually applied to one
// submission: a per-request increment override beats the leaderboard's
// configured mode.
func effectiveMode(forceIncrement bool, leaderboardMode model.UpdateMode) model.UpdateMode {
	if forceIncrement {
		return model.ModeIncrement
	}
	return leaderboardMode
}

// UpdateScore applies one entry under its effective update mode, publishes
// a score.updated event on success, and reads back the member's resulting
// rank in the same call so callers don't need a second round trip.
func (e *Engine) UpdateScore(ctx context.Context, tenantID, projectID string, entry UpdateEntry) (float64, int64, error) {
	md, err := GetMetadata(ctx, e.rdb, tenantID, projectID, entry.LeaderboardID)
	if err != nil {
		return 0, 0, err
	}
	mode := effectiveMode(entry.Increment, md.UpdateMode)
	key := scoreKey(tenantID, projectID, entry.LeaderboardID)

	newScore, err := e.applyOne(ctx, key, entry.UserID, entry.Score, mode, md.SortOrder)
	if err != nil {
		return 0, 0, err
	}

	if md.TTLDays > 0 {
		if err := e.rdb.Expire(ctx, key, time.Duration(md.TTLDays)*24*time.Hour).Err(); err != nil {
			return 0, 0, fmt.Errorf("refresh leaderboard ttl: %w", err)
		}
	}

	rank, err := e.currentRank(ctx, key, md.SortOrder, entry.UserID)
	if err != nil {
		return 0, 0, err
	}

	e.pub.PublishScoreUpdated(ctx, events.ScoreUpdated{
		TenantID:      tenantID,
		ProjectID:     projectID,
		LeaderboardID: entry.LeaderboardID,
		UserID:        entry.UserID,
		Score:         entry.Score,
		Increment:     mode == model.ModeIncrement,
		Timestamp:     e.clock.Now(),
	})

	return newScore, rank, nil
}

// applyOne performs the write for a single (leaderboard, user, score)
// triple under the given mode. Best mode reads the existing score first
// and only writes if the new score improves on it; that read-then-write is
// not atomic with the write, so two concurrent submissions for the same
// user can race and the losing write is simply redundant, not incorrect.
func (e *Engine) applyOne(ctx context.Context, key, userID string, score float64, mode model.UpdateMode, sortOrder model.SortOrder) (float64, error) {
	switch mode {
	case model.ModeIncrement:
		return e.rdb.ZIncrBy(ctx, key, score, userID).Result()

	case model.ModeBest:
		current, err := e.rdb.ZScore(ctx, key, userID).Result()
		if err != nil && err != redis.Nil {
			return 0, fmt.Errorf("read current score: %w", err)
		}
		exists := err != redis.Nil
		improves := !exists || betterScore(score, current, sortOrder)
		if !improves {
			return current, nil
		}
		if err := e.rdb.ZAdd(ctx, key, redis.Z{Score: score, Member: userID}).Err(); err != nil {
			return 0, fmt.Errorf("zadd best score: %w", err)
		}
		return score, nil

	default: // ModeReplace
		if err := e.rdb.ZAdd(ctx, key, redis.Z{Score: score, Member: userID}).Err(); err != nil {
			return 0, fmt.Errorf("zadd score: %w", err)
		}
		return score, nil
	}
}

func betterScore(candidate, current float64, order model.SortOrder) bool {
	if order == model.SortAsc {
		return candidate < current
	}
	return candidate > current
}

// currentRank looks up a member's 1-based rank under the leaderboard's
// sort order.
func (e *Engine) currentRank(ctx context.Context, key string, order model.SortOrder, userID string) (int64, error) {
	var (
		rank int64
		err  error
	)
	if order == model.SortAsc {
		rank, err = e.rdb.ZRank(ctx, key, userID).Result()
	} else {
		rank, err = e.rdb.ZRevRank(ctx, key, userID).Result()
	}
	if err != nil {
		return 0, fmt.Errorf("rank lookup: %w", err)
	}
	return rank + 1, nil
}

// BatchUpdateScore applies entries grouped by leaderboard. Best-mode
// entries within the same leaderboard are pre-read once via a pipelined
// ZMSCORE before any writes, then every entry in the group is written in
// one pipelined round trip, followed by a second pipelined round trip that
// reads back every distinct member's rank. Exactly one score.updated event
// is published per entry, and the leaderboard's TTL is re-armed at most
// once per group per call, not once per entry. A per-entry increment
// override can make a group's effective modes mixed even though they
// share one leaderboard.
func (e *Engine) BatchUpdateScore(ctx context.Context, tenantID, projectID string, entries []UpdateEntry) ([]UpdateResult, error) {
	byLeaderboard := make(map[string][]UpdateEntry)
	order := make([]string, 0, len(entries))
	for _, en := range entries {
		if _, seen := byLeaderboard[en.LeaderboardID]; !seen {
			order = append(order, en.LeaderboardID)
		}
		byLeaderboard[en.LeaderboardID] = append(byLeaderboard[en.LeaderboardID], en)
	}

	results := make([]UpdateResult, 0, len(entries))
	now := e.clock.Now()

	for _, leaderboardID := range order {
		group := byLeaderboard[leaderboardID]
		md, err := GetMetadata(ctx, e.rdb, tenantID, projectID, leaderboardID)
		if err != nil {
			return nil, err
		}
		key := scoreKey(tenantID, projectID, leaderboardID)

		needsBestPreRead := false
		for _, en := range group {
			if effectiveMode(en.Increment, md.UpdateMode) == model.ModeBest {
				needsBestPreRead = true
				break
			}
		}
		var current map[string]float64
		if needsBestPreRead {
			current, err = e.preReadScores(ctx, key, group)
			if err != nil {
				return nil, err
			}
		}

		pipe := e.rdb.Pipeline()
		incrCmds := make(map[int]*redis.FloatCmd, len(group))
		written := make([]bool, len(group))
		for i, en := range group {
			switch effectiveMode(en.Increment, md.UpdateMode) {
			case model.ModeIncrement:
				incrCmds[i] = pipe.ZIncrBy(ctx, key, en.Score, en.UserID)
				written[i] = true
			case model.ModeBest:
				cur, ok := current[en.UserID]
				if !ok || betterScore(en.Score, cur, md.SortOrder) {
					pipe.ZAdd(ctx, key, redis.Z{Score: en.Score, Member: en.UserID})
					written[i] = true
				}
			default:
				pipe.ZAdd(ctx, key, redis.Z{Score: en.Score, Member: en.UserID})
				written[i] = true
			}
		}
		if md.TTLDays > 0 {
			pipe.Expire(ctx, key, time.Duration(md.TTLDays)*24*time.Hour)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("batch pipeline exec for leaderboard %s: %w", leaderboardID, err)
		}

		rankCmds := make(map[string]*redis.IntCmd, len(group))
		rankPipe := e.rdb.Pipeline()
		for _, en := range group {
			if _, already := rankCmds[en.UserID]; already {
				continue
			}
			if md.SortOrder == model.SortAsc {
				rankCmds[en.UserID] = rankPipe.ZRank(ctx, key, en.UserID)
			} else {
				rankCmds[en.UserID] = rankPipe.ZRevRank(ctx, key, en.UserID)
			}
		}
		if _, err := rankPipe.Exec(ctx); err != nil && err != redis.Nil {
			return nil, fmt.Errorf("batch rank lookup for leaderboard %s: %w", leaderboardID, err)
		}

		for i, en := range group {
			mode := effectiveMode(en.Increment, md.UpdateMode)

			finalScore := en.Score
			switch {
			case mode == model.ModeIncrement:
				if cmd, ok := incrCmds[i]; ok {
					if v, err := cmd.Result(); err == nil {
						finalScore = v
					}
				}
			case mode == model.ModeBest && !written[i]:
				finalScore = current[en.UserID]
			}

			var rank int64
			if cmd, ok := rankCmds[en.UserID]; ok {
				if r, err := cmd.Result(); err == nil {
					rank = r + 1
				}
			}

			e.pub.PublishScoreUpdated(ctx, events.ScoreUpdated{
				TenantID:      tenantID,
				ProjectID:     projectID,
				LeaderboardID: en.LeaderboardID,
				UserID:        en.UserID,
				Score:         en.Score,
				Increment:     mode == model.ModeIncrement,
				Timestamp:     now,
			})

			results = append(results, UpdateResult{
				LeaderboardID: en.LeaderboardID,
				UserID:        en.UserID,
				Score:         finalScore,
				Rank:          rank,
			})
		}
	}

	return results, nil
}

func (e *Engine) preReadScores(ctx context.Context, key string, group []UpdateEntry) (map[string]float64, error) {
	members := make([]string, len(group))
	for i, en := range group {
		members[i] = en.UserID
	}
	scores, err := e.rdb.ZMScore(ctx, key, members...).Result()
	if err != nil {
		return nil, fmt.Errorf("pre-read best-mode scores: %w", err)
	}
	// go-redis reports a missing member's score as 0 rather than a
	// separate not-found marker; a genuine stored score of exactly 0 is
	// indistinguishable from "no score yet" here, so it is treated as the
	// conservative case and a fresh submission always improves on it: a 0
	// is left out of the map, so the caller writes the submission.
	out := make(map[string]float64, len(members))
	for i, s := range scores {
		if s != 0 {
			out[members[i]] = s
		}
	}
	return out, nil
}

func (e *Engine) rangeAt(ctx context.Context, key string, order model.SortOrder, start, stop int64) ([]redis.Z, error) {
	if order == model.SortAsc {
		return e.rdb.ZRangeWithScores(ctx, key, start, stop).Result()
	}
	return e.rdb.ZRevRangeWithScores(ctx, key, start, stop).Result()
}

// entriesFrom converts a Redis range result into Entry rows, where start0
// is the 0-based Redis rank of the first row, producing 1-based ranks.
func entriesFrom(zs []redis.Z, start0 int64) []Entry {
	entries := make([]Entry, len(zs))
	for i, z := range zs {
		entries[i] = Entry{UserID: z.Member.(string), Score: z.Score, Rank: start0 + int64(i) + 1}
	}
	return entries
}

// Top returns the leaderboard's top entries, oriented by its configured
// sort order, with limit clamped to [1, 100] and offset to >= 0. Ranks are
// 1-based and continuous from offset+1. total is the leaderboard's full
// member count, independent of limit/offset.
func (e *Engine) Top(ctx context.Context, tenantID, projectID, leaderboardID string, limit, offset int) ([]Entry, int64, error) {
	limit, offset = clampPage(limit, offset)
	md, err := GetMetadata(ctx, e.rdb, tenantID, projectID, leaderboardID)
	if err != nil {
		return nil, 0, err
	}
	key := scoreKey(tenantID, projectID, leaderboardID)

	start := int64(offset)
	stop := int64(offset + limit - 1)
	zs, err := e.rangeAt(ctx, key, md.SortOrder, start, stop)
	if err != nil {
		return nil, 0, fmt.Errorf("range leaderboard: %w", err)
	}

	total, err := e.rdb.ZCard(ctx, key).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("count leaderboard: %w", err)
	}

	return entriesFrom(zs, start), total, nil
}

// RankOf returns a single user's 1-based rank and score, optionally with
// up to neighborCount entries immediately above (strictly better rank) and
// below (strictly worse rank) in the current sort order. A user with no
// score on the leaderboard is not an error: RankResult.Rank and .Score are
// left nil.
func (e *Engine) RankOf(ctx context.Context, tenantID, projectID, leaderboardID, userID string, withNeighbors bool, neighborCount int) (RankResult, error) {
	if neighborCount > maxNeighborCount {
		neighborCount = maxNeighborCount
	}
	if neighborCount < 0 {
		neighborCount = 0
	}

	md, err := GetMetadata(ctx, e.rdb, tenantID, projectID, leaderboardID)
	if err != nil {
		return RankResult{}, err
	}
	key := scoreKey(tenantID, projectID, leaderboardID)

	var rank int64
	if md.SortOrder == model.SortAsc {
		rank, err = e.rdb.ZRank(ctx, key, userID).Result()
	} else {
		rank, err = e.rdb.ZRevRank(ctx, key, userID).Result()
	}
	if err == redis.Nil {
		return RankResult{UserID: userID}, nil
	}
	if err != nil {
		return RankResult{}, fmt.Errorf("rank lookup: %w", err)
	}

	score, err := e.rdb.ZScore(ctx, key, userID).Result()
	if err != nil {
		return RankResult{}, fmt.Errorf("score lookup: %w", err)
	}
	oneBasedRank := rank + 1
	result := RankResult{UserID: userID, Rank: &oneBasedRank, Score: &score}

	if !withNeighbors || neighborCount == 0 {
		return result, nil
	}

	var above []Entry
	if rank > 0 {
		aboveStart := rank - int64(neighborCount)
		if aboveStart < 0 {
			aboveStart = 0
		}
		zs, err := e.rangeAt(ctx, key, md.SortOrder, aboveStart, rank-1)
		if err != nil {
			return RankResult{}, fmt.Errorf("above-neighbor range: %w", err)
		}
		above = entriesFrom(zs, aboveStart)
	}

	belowStart := rank + 1
	zs, err := e.rangeAt(ctx, key, md.SortOrder, belowStart, rank+int64(neighborCount))
	if err != nil {
		return RankResult{}, fmt.Errorf("below-neighbor range: %w", err)
	}
	below := entriesFrom(zs, belowStart)

	result.Neighbors = &Neighbors{Above: above, Below: below}
	return result, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 10
	}
	if limit > maxTopLimit {
		limit = maxTopLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
