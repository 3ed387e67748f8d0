// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/connectix/connectix/internal/account/postgres"
	"github.com/connectix/connectix/internal/config"
	"github.com/connectix/connectix/internal/notify"
	"github.com/connectix/connectix/internal/observability"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// DatabaseFactory opens the account database.
	// Default: store.Connect
	DatabaseFactory func(ctx context.Context, url string) (Database, error)

	// MigratorFactory opens a schema migrator for auto-migrate.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (Migrator, error)

	// RedisFactory creates the client backing the shared rate limiter.
	// Default: redis.ParseURL + redis.NewClient
	RedisFactory func(url string) (RedisClient, error)

	// MailSenderFactory creates the outgoing mail transport.
	// Default: notify.SMTPSender for "smtp", notify.LogSender otherwise
	MailSenderFactory func(cfg *config.Config, logger *slog.Logger) (notify.Sender, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, checks map[string]observability.Check) ObservabilityServer

	// HTTPServerFactory creates the public API server.
	// Default: httpapi.NewServer
	HTTPServerFactory func(addr string, handler http.Handler) HTTPServer
}

// MigrateDeps contains injectable dependencies for the migrate command.
type MigrateDeps struct {
	// MigratorFactory opens a schema migrator.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (Migrator, error)

	// DatabaseURLGetter returns the database URL.
	// Default: getDatabaseURL
	DatabaseURLGetter func() (string, error)
}

// Database wraps the methods used from *pgxpool.Pool.
type Database interface {
	postgres.Querier
	Ping(ctx context.Context) error
	Close()
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	AppliedMigrations() ([]uint, error)
	Close() error
}

// RedisClient wraps the methods used from *redis.Client.
type RedisClient interface {
	redis.Cmdable
	Close() error
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// HTTPServer interface wraps the methods used from httpapi.Server.
type HTTPServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}
