// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/connectix/connectix/internal/account"
	"github.com/connectix/connectix/internal/account/memory"
	"github.com/connectix/connectix/internal/account/postgres"
	"github.com/connectix/connectix/internal/config"
	"github.com/connectix/connectix/internal/httpapi"
	"github.com/connectix/connectix/internal/logging"
	"github.com/connectix/connectix/internal/notify"
	"github.com/connectix/connectix/internal/observability"
	"github.com/connectix/connectix/internal/ratelimit"
	"github.com/connectix/connectix/internal/store"
	"github.com/connectix/connectix/internal/token"
	"github.com/connectix/connectix/internal/totp"
)

// errNotServing fails the readiness check outside the serving window.
var errNotServing = errors.New("not serving")

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the account API server",
		Long: `Start the HTTP account API together with the metrics and health
server. Configuration is read from --config, flags and the environment,
in increasing order of precedence.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := resolveConfigFile()
			if err != nil {
				return err
			}
			cfg, err := config.Load(cmd.Flags(), path)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())

	return cmd
}

// runServeWithDeps starts the API with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}

	// Set up default factories
	if deps.DatabaseFactory == nil {
		deps.DatabaseFactory = func(ctx context.Context, url string) (Database, error) {
			return store.Connect(ctx, url, store.ConnectOptions{})
		}
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = func(url string) (Migrator, error) {
			return store.NewMigrator(url)
		}
	}
	if deps.RedisFactory == nil {
		deps.RedisFactory = func(url string) (RedisClient, error) {
			opts, err := redis.ParseURL(url)
			if err != nil {
				return nil, oops.Code("CONFIG_INVALID").With("key", "redis-url").Wrap(err)
			}
			return redis.NewClient(opts), nil
		}
	}
	if deps.MailSenderFactory == nil {
		deps.MailSenderFactory = newMailSender
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, checks map[string]observability.Check) ObservabilityServer {
			return observability.NewServer(addr, checks)
		}
	}
	if deps.HTTPServerFactory == nil {
		deps.HTTPServerFactory = func(addr string, handler http.Handler) HTTPServer {
			return httpapi.NewServer(addr, handler)
		}
	}

	if err := cfg.Validate(); err != nil {
		return oops.With("operation", "validate configuration").Wrap(err)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.SetDefault(serviceName, version, cfg.LogFormat, level)

	logger.Info("starting connectix",
		"http_addr", cfg.HTTPAddr,
		"metrics_addr", cfg.MetricsAddr,
		"store", cfg.Store,
		"mail_driver", cfg.MailDriver,
	)

	parentCtx := ctx
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	accounts, storeCheck, closeAccounts, err := openAccounts(ctx, cfg, deps, logger)
	if err != nil {
		return err
	}
	defer closeAccounts()

	tokens, err := newTokenService(cfg)
	if err != nil {
		return oops.With("operation", "create token service").Wrap(err)
	}

	sender, err := deps.MailSenderFactory(cfg, logger)
	if err != nil {
		return oops.With("operation", "create mail sender").Wrap(err)
	}
	templates, err := notify.LoadTemplates()
	if err != nil {
		return oops.Code("TEMPLATES_LOAD_FAILED").Wrap(err)
	}
	notifier, err := notify.NewNotifier(sender, templates, logger)
	if err != nil {
		return oops.With("operation", "create notifier").Wrap(err)
	}

	limiter, closeLimiter, err := openLimiter(ctx, cfg, deps, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	var ready atomic.Bool

	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, map[string]observability.Check{
			"serving": func(context.Context) error {
				if !ready.Load() {
					return errNotServing
				}
				return nil
			},
			"store": storeCheck,
		})
		metrics = obsServer.Metrics()
	}

	serviceOpts := []account.Option{
		account.WithLogger(logger),
		account.WithBaseURL(cfg.BaseURL),
		account.WithRegistrationTTL(cfg.RegistrationTTL),
	}
	proxies, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		return err
	}
	routerOpts := httpapi.Options{
		CookieName:     cfg.CookieName,
		CookieMaxAge:   cfg.CookieMaxAge,
		CookieSecure:   cfg.CookieSecure,
		CORSOrigins:    cfg.CORSOrigins,
		Limiter:        limiter,
		TrustedProxies: proxies,
		Logger:         logger,
	}
	if metrics != nil {
		serviceOpts = append(serviceOpts, account.WithEventRecorder(metrics))
		routerOpts.Metrics = metrics
	}

	svc, err := account.NewService(account.Deps{
		Accounts: accounts,
		Hasher:   account.NewBcryptHasher(),
		Tokens:   tokens,
		TOTP:     totp.NewService(totp.Config{Issuer: cfg.TOTPIssuer}),
		Renderer: totp.QRRenderer{},
		Notifier: notifier,
	}, serviceOpts...)
	if err != nil {
		return oops.With("operation", "create account service").Wrap(err)
	}

	// Start observability server if enabled
	if obsServer != nil {
		obsErrCh, startErr := obsServer.Start()
		if startErr != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.MetricsAddr).Wrap(startErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		logger.Info("observability server listening", "addr", obsServer.Addr())
	}

	httpServer := deps.HTTPServerFactory(cfg.HTTPAddr, httpapi.NewRouter(svc, routerOpts))
	httpErrCh, err := httpServer.Start()
	if err != nil {
		stopObservability(obsServer, cfg.ShutdownTimeout)
		return oops.With("operation", "start http server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, httpErrCh, "http")

	ready.Store(true)
	cmd.Printf("Connectix API listening on %s\n", httpServer.Addr())
	logger.Info("connectix ready", "http_addr", httpServer.Addr())

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Wait for shutdown signal or server failure
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	ready.Store(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping http server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")

	// A cause without a cancelled parent means a server died.
	if parentCtx.Err() == nil {
		if cause := context.Cause(ctx); cause != nil {
			return cause
		}
	}
	return nil
}

// newTokenService signs every token purpose with the configured secret.
// Legacy email-verify links live as long as registration tokens.
func newTokenService(cfg *config.Config) (*token.Service, error) {
	return token.NewService(token.Config{
		Secret:         []byte(cfg.JWTSecret),
		SessionTTL:     cfg.SessionTTL,
		EmailVerifyTTL: cfg.RegistrationTTL,
		ResetTTL:       cfg.ResetTTL,
	})
}

// openAccounts returns the repository for cfg.Store, a readiness check for
// it and a release func.
func openAccounts(ctx context.Context, cfg *config.Config, deps *ServeDeps, logger *slog.Logger) (account.Repository, observability.Check, func(), error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("using in-memory account store; accounts are lost on restart")
		return memory.NewRepository(), func(context.Context) error { return nil }, func() {}, nil
	}

	if cfg.AutoMigrate {
		if err := autoMigrate(cfg.DatabaseURL, deps.MigratorFactory, logger); err != nil {
			return nil, nil, nil, err
		}
	}

	db, err := deps.DatabaseFactory(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	return postgres.NewRepository(db), db.Ping, db.Close, nil
}

func autoMigrate(url string, factory func(string) (Migrator, error), logger *slog.Logger) error {
	m, err := factory(url)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "open migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("error closing migrator", "error", closeErr)
		}
	}()

	pending, err := m.PendingMigrations()
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "list pending migrations").Wrap(err)
	}
	if len(pending) == 0 {
		logger.Info("database schema is up to date")
		return nil
	}
	logger.Info("applying migrations", "pending", pending)
	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	return nil
}

// openLimiter returns nil when rate limiting is disabled. A Redis URL selects
// the shared limiter; otherwise limits are per process.
func openLimiter(ctx context.Context, cfg *config.Config, deps *ServeDeps, logger *slog.Logger) (ratelimit.Limiter, func(), error) {
	noop := func() {}
	if cfg.RateLimit == 0 {
		logger.Warn("rate limiting disabled")
		return nil, noop, nil
	}

	if cfg.RedisURL == "" {
		lim, err := ratelimit.NewMemoryLimiter(cfg.RateLimit, cfg.RateWindow)
		if err != nil {
			return nil, noop, err
		}
		return lim, noop, nil
	}

	rdb, err := deps.RedisFactory(cfg.RedisURL)
	if err != nil {
		return nil, noop, oops.With("operation", "create redis client").Wrap(err)
	}
	closeRedis := func() {
		if closeErr := rdb.Close(); closeErr != nil {
			logger.Warn("error closing redis client", "error", closeErr)
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, observability.CheckTimeout)
	defer cancel()
	if pingErr := rdb.Ping(pingCtx).Err(); pingErr != nil {
		// The limiter fails open, so an unreachable Redis is not fatal.
		logger.Warn("redis unreachable at startup", "error", pingErr)
	}

	lim, err := ratelimit.NewRedisLimiter(rdb, cfg.RateLimit, cfg.RateWindow, serviceName+":ratelimit")
	if err != nil {
		closeRedis()
		return nil, noop, err
	}
	return lim, closeRedis, nil
}

func newMailSender(cfg *config.Config, logger *slog.Logger) (notify.Sender, error) {
	if cfg.MailDriver != config.MailSMTP {
		return notify.LogSender{Logger: logger}, nil
	}
	sender, err := notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("key", "mail-driver").Wrap(err)
	}
	return sender, nil
}

func stopObservability(srv ObservabilityServer, timeout time.Duration) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		slog.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors monitors a server's error channel and cancels the context on error,
// recording the failure as the cancellation cause.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelCauseFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel(oops.Code("SERVER_FAILED").With("server", serverName).Wrap(err))
		}
	case <-ctx.Done():
	}
}
