package cache

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rankforge/leaderboard/internal/clock"
	"github.com/rankforge/leaderboard/internal/model"
)

// tokenBucketScript atomically refills and debits a per-tenant bucket
// stored as a Redis hash {tokens, last_refill}. Running the whole
// read-refill-debit sequence as a single EVAL is what makes concurrent
// requests from the same tenant serialize correctly instead of racing on a
// GET-then-SET round trip.
const tokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_per_sec = tonumber(ARGV[2])
local now_ms = tonumber(ARGV[3])
local ttl_secs = tonumber(ARGV[4])

local data = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(data[1])
local refill_at = tonumber(data[2])

if tokens == nil then
  tokens = capacity
  refill_at = now_ms
end

local elapsed_secs = math.max(0, (now_ms - refill_at) / 1000)
tokens = math.min(capacity, tokens + elapsed_secs * refill_per_sec)

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HMSET", key, "tokens", tokens, "last_refill", now_ms)
redis.call("EXPIRE", key, ttl_secs)

return {allowed, tostring(tokens)}
`

// RateLimiter enforces a per-tenant token bucket whose capacity and refill
// rate come from the tenant's plan.
type RateLimiter struct {
	rdb    *redis.Client
	script *redis.Script
	clock  clock.Clock
	keyTTL int
}

func NewRateLimiter(rdb *redis.Client, clk clock.Clock, keyTTLSecs int) *RateLimiter {
	if keyTTLSecs <= 0 {
		keyTTLSecs = 60
	}
	return &RateLimiter{
		rdb:    rdb,
		script: redis.NewScript(tokenBucketScript),
		clock:  clk,
		keyTTL: keyTTLSecs,
	}
}

// Decision is the outcome of a rate-limit check, carrying the fields the
// gateway mirrors into X-RateLimit-* response headers.
type Decision struct {
	Allowed    bool
	Remaining  int64
	Limit      int64
	// ResetAt is the unix-seconds timestamp at which the bucket refills to
	// full capacity, for X-RateLimit-Reset.
	ResetAt int64
	// RetryAfterSecs is how long a rejected caller should wait before the
	// bucket is expected to hold at least one token again. Zero when
	// Allowed is true.
	RetryAfterSecs int64
}

func (rl *RateLimiter) Allow(ctx context.Context, tenantID string, plan model.PlanType) (Decision, error) {
	params := model.Bucket(plan)
	key := fmt.Sprintf("rl:%s", tenantID)
	now := rl.clock.Now()
	nowMs := now.UnixMilli()

	res, err := rl.script.Run(ctx, rl.rdb, []string{key}, params.Capacity, params.RefillPerSec, nowMs, rl.keyTTL).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("run token bucket script: %w", err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return Decision{}, fmt.Errorf("unexpected token bucket script result: %v", res)
	}
	allowed, _ := vals[0].(int64)
	var tokens float64
	if s, ok := vals[1].(string); ok {
		fmt.Sscanf(s, "%f", &tokens)
	}

	refillPerSec := params.RefillPerSec
	if refillPerSec <= 0 {
		refillPerSec = 1
	}

	secsToFull := (float64(params.Capacity) - tokens) / refillPerSec
	if secsToFull < 0 {
		secsToFull = 0
	}
	resetAt := now.Add(time.Duration(secsToFull * float64(time.Second))).Unix()

	var retryAfter int64
	if allowed != 1 {
		secsToOneToken := (1 - tokens) / refillPerSec
		retryAfter = int64(math.Ceil(secsToOneToken))
		if retryAfter < 1 {
			retryAfter = 1
		}
	}

	return Decision{
		Allowed:        allowed == 1,
		Remaining:      int64(tokens),
		Limit:          params.Capacity,
		ResetAt:        resetAt,
		RetryAfterSecs: retryAfter,
	}, nil
}
