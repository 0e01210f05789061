package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"blogcms/internal/middleware"
	"blogcms/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	postListVersionKey = "posts:list:version"
	postListKeyFormat  = "posts:list:v%d:%s:%d:%d"
)

// PostListTTL bounds how stale a cached public post listing can be.
const PostListTTL = 2 * time.Minute

// Cache is a JSON cache over Redis. A nil client turns every method into a
// pass-through so callers never branch on whether Redis is configured.
type Cache struct {
	client *redis.Client
}

// New wraps client, which may be nil.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Enabled reports whether a Redis client is attached.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	s, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, b, ttl).Err()
}

// CacheAside tries Redis first, on miss it calls fetch (which must populate
// dest), then stores the result with ttl. Redis failures are logged and the
// source is used directly.
func (c *Cache) CacheAside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if !c.Enabled() {
		return fetch()
	}

	found, err := c.GetJSON(ctx, key, dest)
	switch {
	case err != nil:
		observability.CacheLookups.WithLabelValues("error").Inc()
		middleware.Logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	case found:
		observability.CacheLookups.WithLabelValues("hit").Inc()
		return nil
	default:
		observability.CacheLookups.WithLabelValues("miss").Inc()
	}

	if err := fetch(); err != nil {
		return err
	}

	if err := c.SetJSON(ctx, key, dest, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
	return nil
}

// Invalidate deletes key, best effort.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	if c.Enabled() {
		c.client.Del(ctx, key)
	}
}

// PostListKey is the cache key for one page of the post listing. Keys embed
// the listing version so a bump orphans every cached page at once.
func (c *Cache) PostListKey(ctx context.Context, status string, page, limit int) string {
	return fmt.Sprintf(postListKeyFormat, c.postListVersion(ctx), status, page, limit)
}

// InvalidatePostLists bumps the listing version. Called after any post
// mutation.
func (c *Cache) InvalidatePostLists(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	if err := c.client.Incr(ctx, postListVersionKey).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to bump post list version", "error", err)
	}
}

func (c *Cache) postListVersion(ctx context.Context) int64 {
	if !c.Enabled() {
		return 0
	}
	v, err := c.client.Get(ctx, postListVersionKey).Int64()
	if err != nil {
		return 0
	}
	return v
}
