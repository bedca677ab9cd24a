package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rankforge/leaderboard/internal/identity"
)

// AuthCache caches successful api key validations so the gateway's hot
// path skips a relational lookup and an argon2 compare on every request.
// Negative results (invalid or revoked keys) are never cached: caching a
// miss would let a revoked key keep working until the TTL expires.
type AuthCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewAuthCache(rdb *redis.Client, ttlSecs int) *AuthCache {
	if ttlSecs <= 0 {
		ttlSecs = 300
	}
	return &AuthCache{rdb: rdb, ttl: time.Duration(ttlSecs) * time.Second}
}

func authCacheKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return "auth:" + hex.EncodeToString(sum[:])[:32]
}

func (c *AuthCache) Get(ctx context.Context, plaintext string) (*identity.Identity, bool) {
	raw, err := c.rdb.Get(ctx, authCacheKey(plaintext)).Bytes()
	if err != nil {
		return nil, false
	}
	var id identity.Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, false
	}
	return &id, true
}

func (c *AuthCache) Set(ctx context.Context, plaintext string, id identity.Identity) error {
	raw, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	return c.rdb.Set(ctx, authCacheKey(plaintext), raw, c.ttl).Err()
}

// Invalidate drops a cached identity immediately. The key revocation path
// does not call it, so a revoked key whose identity is already cached keeps
// validating until the cached entry's TTL expires.
func (c *AuthCache) Invalidate(ctx context.Context, plaintext string) error {
	return c.rdb.Del(ctx, authCacheKey(plaintext)).Err()
}
