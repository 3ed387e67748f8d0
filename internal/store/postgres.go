// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

// Package store owns the PostgreSQL connection pool and schema migrations.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// ConnectOptions tunes Connect.
type ConnectOptions struct {
	// MaxConns caps the pool size. Zero keeps the pgxpool default.
	MaxConns int32
	// Attempts is the number of pings tried before giving up. Defaults to 5.
	Attempts uint64
	// Backoff is the initial delay between pings, doubled each attempt.
	// Defaults to 250ms.
	Backoff time.Duration
}

// pinger is the part of *pgxpool.Pool that waitReady needs.
type pinger interface {
	Ping(ctx context.Context) error
}

// Connect opens a pool for databaseURL and waits until the server answers a
// ping, retrying with exponential backoff.
func Connect(ctx context.Context, databaseURL string, opts ConnectOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("STORE_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("STORE_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}
	if err := waitReady(ctx, pool, opts); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func waitReady(ctx context.Context, db pinger, opts ConnectOptions) error {
	attempts := opts.Attempts
	if attempts == 0 {
		attempts = 5
	}
	base := opts.Backoff
	if base <= 0 {
		base = 250 * time.Millisecond
	}

	backoff := retry.WithMaxRetries(attempts-1, retry.NewExponential(base))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := db.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("STORE_CONNECT_FAILED").
			With("operation", "ping database").
			With("attempts", attempts).
			Wrap(err)
	}
	return nil
}
