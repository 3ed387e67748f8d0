// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connectix/connectix/pkg/errutil"
)

// fakeCounter emulates INCR/EXPIRE/TTL on a single map.
type fakeCounter struct {
	counts  map[string]int64
	ttls    map[string]time.Duration
	expires int
	incrErr error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCounter) Incr(_ context.Context, key string) *redis.IntCmd {
	if f.incrErr != nil {
		return redis.NewIntResult(0, f.incrErr)
	}
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeCounter) Expire(_ context.Context, key string, d time.Duration) *redis.BoolCmd {
	f.expires++
	f.ttls[key] = d
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCounter) TTL(_ context.Context, key string) *redis.DurationCmd {
	ttl, ok := f.ttls[key]
	if !ok {
		return redis.NewDurationResult(-1, nil)
	}
	return redis.NewDurationResult(ttl, nil)
}

func TestRedisLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCounter()
	l, err := newRedisLimiter(fc, 2, time.Hour, "connectix")
	require.NoError(t, err)

	res, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)
	assert.Equal(t, time.Hour, res.Reset)
	assert.Equal(t, time.Hour, fc.ttls["connectix:1.2.3.4"])

	res, err = l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	res, err = l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 1, fc.expires, "window is set once")
}

func TestRedisLimiter_RepairsMissingExpiry(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCounter()
	fc.counts["ratelimit:k"] = 5
	l, err := newRedisLimiter(fc, 10, time.Minute, "")
	require.NoError(t, err)

	res, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, res.Reset)
	assert.Equal(t, 1, fc.expires)
}

func TestRedisLimiter_BackendError(t *testing.T) {
	fc := newFakeCounter()
	fc.incrErr = errors.New("connection refused")
	l, err := newRedisLimiter(fc, 10, time.Minute, "")
	require.NoError(t, err)

	_, err = l.Allow(context.Background(), "k")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "RATELIMIT_BACKEND_FAILED")
}

func TestNewRedisLimiter_Validation(t *testing.T) {
	_, err := NewRedisLimiter(nil, 10, time.Minute, "")
	errutil.AssertErrorCode(t, err, "RATELIMIT_CONFIG_INVALID")

	_, err = newRedisLimiter(newFakeCounter(), 0, time.Minute, "")
	errutil.AssertErrorCode(t, err, "RATELIMIT_CONFIG_INVALID")
}
