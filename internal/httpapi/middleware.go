// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

package httpapi

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/connectix/connectix/internal/ratelimit"
)

// RateLimitMessage is returned with 429 responses.
const RateLimitMessage = "We have received too many requests from this IP. Please try again after one hour."

// Metrics records per-request observations. observability.Metrics
// implements it.
type Metrics interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
	RecordRateLimited()
}

type nopMetrics struct{}

func (nopMetrics) ObserveHTTP(string, string, int, time.Duration) {}
func (nopMetrics) RecordRateLimited()                             {}

// routeLabel is the matched chi pattern, or "unmatched" for 404s.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// instrument logs one line per request and feeds the request metrics.
func instrument(logger *slog.Logger, metrics Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			route := routeLabel(r)
			metrics.ObserveHTTP(r.Method, route, status, elapsed)
			logger.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"route", route,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", elapsed.Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_ip", clientIP(r),
			)
		})
	}
}

// recoverer turns a handler panic into a 500 envelope.
func recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler { //nolint:errorlint,err113 // sentinel compared by identity
					panic(rec)
				}
				logger.ErrorContext(r.Context(), "panic serving request",
					"panic", rec,
					"request_id", middleware.GetReqID(r.Context()),
					"stack", string(debug.Stack()),
				)
				writeFailure(w, http.StatusInternalServerError, internalErrorMessage)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// securityHeaders sets conservative browser security headers. HSTS is only
// sent when the deployment is served over TLS.
func securityHeaders(hsts bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Cross-Origin-Opener-Policy", "same-origin")
			h.Set("X-DNS-Prefetch-Control", "off")
			if hsts {
				h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimit throttles by client IP. Limiter failures let the request through.
func rateLimit(limiter ratelimit.Limiter, metrics Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := limiter.Allow(r.Context(), clientIP(r))
			if err != nil {
				logger.WarnContext(r.Context(), "rate limiter unavailable, allowing request",
					"operation", "rate limit",
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if !res.Allowed {
				metrics.RecordRateLimited()
				retry := int(res.Reset.Round(time.Second) / time.Second)
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				writeFailure(w, http.StatusTooManyRequests, RateLimitMessage)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// realIP replaces RemoteAddr with the client address a trusted proxy
// forwarded. Forwarding headers from any other peer are ignored, so the rate
// limiter keys on the socket address.
func realIP(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(trusted) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip := forwardedClient(r, trusted); ip != "" {
				r.RemoteAddr = ip
			}
			next.ServeHTTP(w, r)
		})
	}
}

// forwardedClient walks X-Forwarded-For from the outermost hop outwards and
// returns the first address that is not a trusted proxy. Entries further left
// were written by the client and are not used. X-Real-IP is consulted only
// when X-Forwarded-For is absent. An empty result keeps the peer address.
func forwardedClient(r *http.Request, trusted []netip.Prefix) string {
	peer, err := netip.ParseAddr(clientIP(r))
	if err != nil || !isTrusted(peer, trusted) {
		return ""
	}

	if values := r.Header.Values("X-Forwarded-For"); len(values) > 0 {
		hops := strings.Split(strings.Join(values, ","), ",")
		var outermost netip.Addr
		for i := len(hops) - 1; i >= 0; i-- {
			addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			if !isTrusted(addr, trusted) {
				return addr.Unmap().String()
			}
			outermost = addr
		}
		if outermost.IsValid() {
			return outermost.Unmap().String()
		}
		return ""
	}

	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.Unmap().String()
	}
	return ""
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	addr = addr.Unmap()
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP strips the port from RemoteAddr. realIP leaves a bare address.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
