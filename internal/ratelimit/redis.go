// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// counter is the part of redis.Cmdable the fixed-window limiter uses.
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// RedisLimiter is a fixed-window counter shared by every instance that
// points at the same Redis.
type RedisLimiter struct {
	rdb    counter
	limit  int
	window time.Duration
	prefix string
}

// NewRedisLimiter creates a RedisLimiter. Keys are stored as prefix:key.
func NewRedisLimiter(rdb redis.Cmdable, limit int, window time.Duration, prefix string) (*RedisLimiter, error) {
	return newRedisLimiter(rdb, limit, window, prefix)
}

func newRedisLimiter(rdb counter, limit int, window time.Duration, prefix string) (*RedisLimiter, error) {
	if rdb == nil {
		return nil, oops.Code("RATELIMIT_CONFIG_INVALID").Errorf("redis client is required")
	}
	if limit <= 0 || window <= 0 {
		return nil, oops.Code("RATELIMIT_CONFIG_INVALID").
			With("limit", limit).
			With("window", window.String()).
			Errorf("limit and window must be positive")
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{rdb: rdb, limit: limit, window: window, prefix: prefix}, nil
}

// Allow increments the counter for key. The window starts with the first
// request and the key expires with it.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	k := l.prefix + ":" + key

	count, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return Result{}, oops.Code("RATELIMIT_BACKEND_FAILED").With("operation", "incr").Wrap(err)
	}

	ttl, err := l.rdb.TTL(ctx, k).Result()
	if err != nil {
		return Result{}, oops.Code("RATELIMIT_BACKEND_FAILED").With("operation", "ttl").Wrap(err)
	}
	// A key without expiry is either brand new or survived a failed Expire.
	if count == 1 || ttl < 0 {
		if err := l.rdb.Expire(ctx, k, l.window).Err(); err != nil {
			return Result{}, oops.Code("RATELIMIT_BACKEND_FAILED").With("operation", "expire").Wrap(err)
		}
		ttl = l.window
	}

	return Result{
		Allowed:   count <= int64(l.limit),
		Limit:     l.limit,
		Remaining: remaining(l.limit, count),
		Reset:     ttl,
	}, nil
}
