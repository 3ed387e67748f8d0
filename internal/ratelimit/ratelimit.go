// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

// Package ratelimit counts requests per client key within a window.
package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of a single Allow call.
type Result struct {
	// Allowed reports whether the request fits within the limit.
	Allowed bool

	// Limit is the number of requests permitted per window.
	Limit int

	// Remaining is the number of requests left in the current window.
	Remaining int

	// Reset is the time until the window restarts.
	Reset time.Duration
}

// Limiter decides whether another request from key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

func remaining(limit int, count int64) int {
	if r := int64(limit) - count; r > 0 {
		return int(r)
	}
	return 0
}
