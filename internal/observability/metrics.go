// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Connectix application metrics.
type Metrics struct {
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	AuthEvents   *prometheus.CounterVec
	RateLimited  prometheus.Counter
}

// NewMetrics creates the metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "connectix_http_requests_total",
				Help: "HTTP requests by method, route pattern and status code",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "connectix_http_request_duration_seconds",
				Help:    "HTTP request latency by method and route pattern",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuthEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "connectix_auth_events_total",
				Help: "Account lifecycle and authentication outcomes",
			},
			[]string{"event", "outcome"},
		),
		RateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "connectix_rate_limited_total",
				Help: "Requests rejected by the rate limiter",
			},
		),
	}

	reg.MustRegister(m.HTTPRequests, m.HTTPDuration, m.AuthEvents, m.RateLimited)
	return m
}

// ObserveHTTP records one finished request. route is the matched pattern,
// not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordAuthEvent counts an authentication outcome.
func (m *Metrics) RecordAuthEvent(event, outcome string) {
	m.AuthEvents.WithLabelValues(event, outcome).Inc()
}

// RecordRateLimited counts a rejected request.
func (m *Metrics) RecordRateLimited() {
	m.RateLimited.Inc()
}
