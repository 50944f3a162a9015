package distance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL keeps road estimates for a day.
const DefaultCacheTTL = 24 * time.Hour

// cacheKeyPrecision rounds coordinates to about one meter.
const cacheKeyPrecision = 5

// RedisCache stores estimates of the wrapped estimator in Redis. Degraded
// estimates are never cached. Redis failures are logged and bypassed: the cache
// can slow a pass down but never fail it.
type RedisCache struct {
	next   ports.DistanceEstimator
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

type cachedEstimate struct {
	Meters          float64 `json:"m"`
	DurationSeconds float64 `json:"s"`
	Source          string  `json:"src"`
}

// NewRedisClient connects to the Redis instance named by a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opt), nil
}

// NewRedisCache wraps next. A non-positive ttl falls back to DefaultCacheTTL.
func NewRedisCache(next ports.DistanceEstimator, rdb redis.Cmdable, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{
		next:   next,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.With("component", "distance_cache"),
	}
}

func (c *RedisCache) Estimate(ctx context.Context, from, to kernel.Location) (ports.DistanceEstimate, error) {
	key := cacheKey(from, to)

	if est, ok := c.get(ctx, key); ok {
		return est, nil
	}

	est, err := c.next.Estimate(ctx, from, to)
	if err != nil || est.Degraded {
		return est, err
	}

	c.put(ctx, key, est)
	return est, nil
}

func (c *RedisCache) get(ctx context.Context, key string) (ports.DistanceEstimate, bool) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "distance cache read failed", "key", key, "error", err)
		}
		return ports.DistanceEstimate{}, false
	}

	var cached cachedEstimate
	if err = json.Unmarshal(raw, &cached); err != nil {
		c.logger.WarnContext(ctx, "distance cache entry is corrupt", "key", key, "error", err)
		return ports.DistanceEstimate{}, false
	}

	return ports.DistanceEstimate{
		Meters:   cached.Meters,
		Duration: time.Duration(cached.DurationSeconds * float64(time.Second)),
		Source:   cached.Source,
	}, true
}

func (c *RedisCache) put(ctx context.Context, key string, est ports.DistanceEstimate) {
	raw, err := json.Marshal(cachedEstimate{
		Meters:          est.Meters,
		DurationSeconds: est.Duration.Seconds(),
		Source:          est.Source,
	})
	if err != nil {
		return
	}

	if err = c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "distance cache write failed", "key", key, "error", err)
	}
}

// cacheKey is direction-sensitive: road legs are not symmetric.
func cacheKey(from, to kernel.Location) string {
	return fmt.Sprintf("distance:%.*f,%.*f:%.*f,%.*f",
		cacheKeyPrecision, from.Lat(), cacheKeyPrecision, from.Lng(),
		cacheKeyPrecision, to.Lat(), cacheKeyPrecision, to.Lng(),
	)
}
