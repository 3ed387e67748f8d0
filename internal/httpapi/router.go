// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

// Package httpapi exposes the account service as a JSON API under
// /api/v1/auth.
package httpapi

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/connectix/connectix/internal/ratelimit"
)

// Options configures NewRouter. Zero values fall back to the defaults noted.
type Options struct {
	// CookieName defaults to "token".
	CookieName string
	// CookieMaxAge defaults to 72h.
	CookieMaxAge time.Duration
	// CookieSecure marks the session cookie Secure and enables HSTS.
	CookieSecure bool
	// CORSOrigins are the allowed browser origins. Empty disables CORS.
	CORSOrigins []string
	// Limiter throttles /api per client IP. Nil disables rate limiting.
	Limiter ratelimit.Limiter
	// TrustedProxies are the peers whose forwarding headers name the client.
	// Empty means every request is keyed on its socket address.
	TrustedProxies []netip.Prefix
	// Metrics defaults to a no-op recorder.
	Metrics Metrics
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// MaxBodyBytes defaults to DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// NewRouter builds the HTTP handler for svc.
func NewRouter(svc AccountService, opts Options) http.Handler {
	if opts.CookieName == "" {
		opts.CookieName = "token"
	}
	if opts.CookieMaxAge <= 0 {
		opts.CookieMaxAge = 72 * time.Hour
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	h := &handler{
		svc:          svc,
		logger:       opts.Logger,
		cookieName:   opts.CookieName,
		cookieMaxAge: opts.CookieMaxAge,
		cookieSecure: opts.CookieSecure,
		maxBodyBytes: opts.MaxBodyBytes,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(realIP(opts.TrustedProxies))
	r.Use(instrument(opts.Logger, opts.Metrics))
	r.Use(recoverer(opts.Logger))
	r.Use(securityHeaders(opts.CookieSecure))
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeFailure(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/", h.home)

	r.Route("/api", func(api chi.Router) {
		if opts.Limiter != nil {
			api.Use(rateLimit(opts.Limiter, opts.Metrics, opts.Logger))
		}
		api.Route("/v1/auth", func(auth chi.Router) {
			// Registration
			auth.Post("/initial", h.register)
			auth.Post("/verify-email-code", h.verifyEmailCode)
			auth.Get("/verify-email/{token}", h.verifyEmailLink)
			auth.Post("/update", h.updateProfile)
			auth.Post("/complete", h.completeRegistration)

			// Sessions and passwords
			auth.Post("/user-login", h.login)
			auth.Get("/me", h.me)
			auth.Post("/forget-password", h.forgotPassword)
			auth.Get("/reset-password/{id}/{token}", h.checkResetLink)
			auth.Post("/reset-password/{id}/{token}", h.resetPassword)
			auth.Post("/change-password", h.changePassword)

			// Two-factor
			auth.Post("/enable-2fa", h.enableTwoFA)
			auth.Post("/verify-2fa", h.verifyTwoFA)
			auth.Post("/verify-2fa-login", h.verifyTwoFALogin)
		})
	})

	return r
}
