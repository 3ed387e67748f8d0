// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

// Package observability serves Prometheus metrics and health probes on a
// listener separate from the public API.
package observability

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
)

// CheckTimeout bounds each readiness check.
const CheckTimeout = 2 * time.Second

// Check reports whether one dependency can serve traffic. A nil error means
// healthy.
type Check func(ctx context.Context) error

// Status values in probe responses.
const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"
)

// Report is the JSON body of the health probes.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Server exposes /metrics, /healthz/liveness and /healthz/readiness.
type Server struct {
	addr     string
	registry *prometheus.Registry
	metrics  *Metrics
	checks   map[string]Check

	mu       sync.Mutex
	listener net.Listener
	srv      *http.Server
}

// NewServer creates a Server with its own registry holding the Go runtime,
// process and Connectix collectors. Readiness passes only when every check
// passes. addr is host:port; port 0 picks a free one.
func NewServer(addr string, checks map[string]Check) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Server{
		addr:     addr,
		registry: registry,
		metrics:  NewMetrics(registry),
		checks:   checks,
	}
}

// Metrics returns the application metrics registered on this server.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Handler returns the probe and metrics routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("GET /healthz/liveness", func(w http.ResponseWriter, _ *http.Request) {
		writeReport(w, http.StatusOK, Report{Status: StatusOK})
	})
	mux.HandleFunc("GET /healthz/readiness", s.handleReadiness)
	return mux
}

// Start listens and serves in the background. The returned channel yields a
// serve error if the server dies and is closed once it stops.
func (s *Server) Start() (<-chan error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil, oops.Code("OBSERVABILITY_RUNNING").Errorf("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.listener, s.srv = listener, srv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("observability server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("observability server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop shuts the server down. Stopping a server that is not running is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return oops.With("operation", "shutdown observability server").Wrap(err)
	}
	slog.Info("observability server stopped")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	report := s.Ready(r.Context())
	status := http.StatusOK
	if report.Status != StatusOK {
		status = http.StatusServiceUnavailable
	}
	writeReport(w, status, report)
}

// Ready runs every check concurrently and summarizes the results.
func (s *Server) Ready(ctx context.Context) Report {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]string, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, CheckTimeout)
			defer cancel()
			if err := s.checks[name](checkCtx); err != nil {
				results[i] = err.Error()
				return
			}
			results[i] = StatusOK
		}()
	}
	wg.Wait()

	report := Report{Status: StatusOK, Checks: make(map[string]string, len(names))}
	for i, name := range names {
		report.Checks[name] = results[i]
		if results[i] != StatusOK {
			report.Status = StatusUnavailable
		}
	}
	return report
}

func writeReport(w http.ResponseWriter, status int, report Report) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	//nolint:errcheck // client may have gone away
	json.NewEncoder(w).Encode(report)
}
