package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func TestLimiterAllowsBudgetThenRejects(t *testing.T) {
	_, rdb := newTestRedis(t)
	l := New(rdb, Config{Prefix: "t", MaxAttempts: 3, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.Allow(ctx, "client-a"); err != nil {
			t.Fatalf("hit %d: %v", i+1, err)
		}
	}
	if err := l.Allow(ctx, "client-a"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.Check(ctx, "client-a"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Check: expected ErrRateLimited, got %v", err)
	}
	if err := l.Allow(ctx, "client-b"); err != nil {
		t.Fatalf("other key must be independent: %v", err)
	}
	if d := l.RetryAfter(ctx, "client-a"); d <= 0 || d > time.Minute {
		t.Fatalf("unexpected retry-after %v", d)
	}
}

func TestLimiterWindowExpires(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := New(rdb, Config{Prefix: "t", MaxAttempts: 1, Window: time.Minute})
	ctx := context.Background()

	_ = l.Allow(ctx, "k")
	if err := l.Allow(ctx, "k"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	mr.FastForward(61 * time.Second)
	if err := l.Allow(ctx, "k"); err != nil {
		t.Fatalf("window should have reset: %v", err)
	}
}

func TestLimiterResetAndDisabled(t *testing.T) {
	_, rdb := newTestRedis(t)
	l := New(rdb, Config{MaxAttempts: 1, Window: time.Minute})
	ctx := context.Background()

	_ = l.Allow(ctx, "k")
	if err := l.Reset(ctx, "k"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if err := l.Check(ctx, "k"); err != nil {
		t.Fatalf("Check after reset: %v", err)
	}

	var nilLimiter *Limiter
	if err := nilLimiter.Allow(ctx, "k"); err != nil {
		t.Fatalf("nil limiter must allow: %v", err)
	}
	if err := New(rdb, Config{}).Allow(ctx, "k"); err != nil {
		t.Fatalf("zero budget must allow: %v", err)
	}
}

func TestLimiterRedisDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := New(rdb, Config{MaxAttempts: 1, Window: time.Minute})
	mr.Close()
	if err := l.Allow(context.Background(), "k"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
