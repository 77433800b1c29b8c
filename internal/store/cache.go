package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("store: cache miss")

const keyPrefix = "attribution:run:"

// RunCache keeps finished runs in Redis keyed by their date range, so a
// repeated request for the same window skips the load and recompute.
type RunCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRunCache(rdb *redis.Client, ttl time.Duration) *RunCache {
	return &RunCache{rdb: rdb, ttl: ttl}
}

// NewRedisClient accepts a redis:// URL or a bare host:port.
func NewRedisClient(url string) *redis.Client {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return redis.NewClient(&redis.Options{Addr: url})
	}
	return redis.NewClient(opts)
}

func RangeKey(from, to time.Time) string {
	return keyPrefix + from.Format("2006-01-02") + ":" + to.Format("2006-01-02")
}

func (c *RunCache) Get(ctx context.Context, from, to time.Time) (*Run, error) {
	b, err := c.rdb.Get(ctx, RangeKey(from, to)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache: get: %w", err)
	}
	var r Run
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("cache: decode: %w", err)
	}
	return &r, nil
}

func (c *RunCache) Put(ctx context.Context, r *Run) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("cache: encode: %w", err)
	}
	if err := c.rdb.Set(ctx, RangeKey(r.From, r.To), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set: %w", err)
	}
	return nil
}

// Invalidate drops the cached run for a range; the next request recomputes.
func (c *RunCache) Invalidate(ctx context.Context, from, to time.Time) error {
	return c.rdb.Del(ctx, RangeKey(from, to)).Err()
}

func (c *RunCache) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }
