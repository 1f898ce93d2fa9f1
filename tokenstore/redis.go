package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps tokens under "<prefix>:<clientID>:access" and
// "<prefix>:<clientID>:refresh" with the configured TTLs.
type RedisStore struct {
	redis    redis.UniversalClient
	prefix   string
	clientID string
	ttl      TTLConfig
}

// NewRedisStore returns a store scoped to clientID. An empty prefix
// defaults to "aft".
func NewRedisStore(client redis.UniversalClient, prefix, clientID string, ttl TTLConfig) *RedisStore {
	if prefix == "" {
		prefix = "aft"
	}
	return &RedisStore{
		redis:    client,
		prefix:   prefix,
		clientID: clientID,
		ttl:      ttl.withDefaults(),
	}
}

func (s *RedisStore) accessKey() string {
	return s.prefix + ":" + s.clientID + ":access"
}

func (s *RedisStore) refreshKey() string {
	return s.prefix + ":" + s.clientID + ":refresh"
}

func (s *RedisStore) Set(ctx context.Context, tokens Tokens) error {
	if tokens.Empty() {
		return ErrEmptyToken
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.accessKey(), tokens.Access, s.ttl.AccessTTL)
		// a refresh token never outlives the access token it was issued with
		if tokens.Refresh != "" {
			pipe.Set(ctx, s.refreshKey(), tokens.Refresh, s.ttl.RefreshTTL)
		} else {
			pipe.Del(ctx, s.refreshKey())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context) (Tokens, error) {
	vals, err := s.redis.MGet(ctx, s.accessKey(), s.refreshKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Tokens{}, nil
		}
		return Tokens{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var out Tokens
	if len(vals) > 0 {
		out.Access, _ = vals[0].(string)
	}
	if len(vals) > 1 {
		out.Refresh, _ = vals[1].(string)
	}
	return out, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.accessKey(), s.refreshKey()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
