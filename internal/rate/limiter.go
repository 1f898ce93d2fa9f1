package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds the budget of one limiter.
type Config struct {
	Prefix      string
	MaxAttempts int
	Window      time.Duration
}

// Limiter counts hits per key in fixed windows stored in Redis.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "rl"
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Enabled is false for a nil limiter or a non-positive budget.
func (l *Limiter) Enabled() bool {
	return l != nil && l.redis != nil && l.config.MaxAttempts > 0 && l.config.Window > 0
}

// Check reports ErrRateLimited when key already exceeded its budget
// without recording a hit.
func (l *Limiter) Check(ctx context.Context, key string) error {
	if !l.Enabled() {
		return nil
	}
	count, err := l.redis.Get(ctx, l.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Allow records one hit and reports ErrRateLimited once the window budget
// is exceeded.
func (l *Limiter) Allow(ctx context.Context, key string) error {
	if !l.Enabled() {
		return nil
	}
	count, err := l.incrementWithTTL(ctx, l.key(key), l.config.Window)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the counter of key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if !l.Enabled() {
		return nil
	}
	if err := l.redis.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// RetryAfter returns the time left in the current window of key.
func (l *Limiter) RetryAfter(ctx context.Context, key string) time.Duration {
	if !l.Enabled() {
		return 0
	}
	ttl, err := l.redis.PTTL(ctx, l.key(key)).Result()
	if err != nil || ttl < 0 {
		return 0
	}
	return ttl
}

func (l *Limiter) key(k string) string {
	return l.config.Prefix + ":" + k
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
