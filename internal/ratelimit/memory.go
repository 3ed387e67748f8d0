// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/samber/oops"
	"golang.org/x/time/rate"
)

// DefaultMaxKeys bounds how many clients a MemoryLimiter tracks. Past it the
// least recently seen client is forgotten.
const DefaultMaxKeys = 10_000

// MemoryLimiter is a per-process token bucket per key. The bucket holds
// limit tokens and refills the whole window's worth over window, so the
// long-run rate matches the fixed-window limiter.
//
// Forgetting a client resets it to a full bucket, which is what it would
// hold after a window of inactivity anyway.
type MemoryLimiter struct {
	limit int
	every rate.Limit
	now   func() time.Time

	mu      sync.Mutex
	buckets *simplelru.LRU[string, *rate.Limiter]
}

// NewMemoryLimiter creates a MemoryLimiter tracking up to DefaultMaxKeys
// clients.
func NewMemoryLimiter(limit int, window time.Duration) (*MemoryLimiter, error) {
	return newMemoryLimiter(limit, window, DefaultMaxKeys)
}

func newMemoryLimiter(limit int, window time.Duration, maxKeys int) (*MemoryLimiter, error) {
	if limit <= 0 || window <= 0 {
		return nil, oops.Code("RATELIMIT_CONFIG_INVALID").
			With("limit", limit).
			With("window", window.String()).
			Errorf("limit and window must be positive")
	}
	buckets, err := simplelru.NewLRU[string, *rate.Limiter](maxKeys, nil)
	if err != nil {
		return nil, oops.Code("RATELIMIT_CONFIG_INVALID").With("max_keys", maxKeys).Wrap(err)
	}
	return &MemoryLimiter{
		limit:   limit,
		every:   rate.Every(window / time.Duration(limit)),
		now:     time.Now,
		buckets: buckets,
	}, nil
}

// Allow takes one token from key's bucket.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.buckets.Get(key)
	if !ok {
		lim = rate.NewLimiter(l.every, l.limit)
		l.buckets.Add(key, lim)
	}

	allowed := lim.AllowN(now, 1)
	tokens := lim.TokensAt(now)
	left := 0
	if tokens > 0 {
		left = int(tokens)
	}

	// Time until the bucket is full again.
	missing := float64(l.limit) - tokens
	reset := time.Duration(missing / float64(l.every) * float64(time.Second))

	return Result{
		Allowed:   allowed,
		Limit:     l.limit,
		Remaining: left,
		Reset:     reset,
	}, nil
}

// Len returns the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buckets.Len()
}
