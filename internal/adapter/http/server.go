// Package http serves liveness, readiness, metrics and run progress while a
// load is in flight.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/snowpack-etl/internal/pipeline"
)

// RunMonitor exposes the pipeline's readiness and progress.
type RunMonitor interface {
	sharedobs.ReadinessChecker
	Status() pipeline.Status
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// Server exposes /healthz, /readyz, /metrics and /status.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates the status server. health may be nil, in which case
// /healthz only reports that the process is up.
func NewServer(addr string, run RunMonitor, health HealthChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", handleHealth(health))
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(run))
	mux.HandleFunc("GET /status", handleStatus(run))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleHealth pings the dependency. Without one it behaves like the
// liveness handler.
func handleHealth(checker HealthChecker) http.HandlerFunc {
	if checker == nil {
		return sharedobs.LivenessHandler()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckHealth(ctx); err != nil {
			sharedobs.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
		sharedobs.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

func handleStatus(run RunMonitor) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		sharedobs.WriteJSON(w, http.StatusOK, run.Status())
	}
}
