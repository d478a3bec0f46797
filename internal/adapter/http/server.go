// Package http serves the telemetry pipeline's operational endpoints:
// liveness and readiness checks plus the Prometheus scrape target.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineStatus is the view of the ETL loop the endpoints need: whether it is
// ready to be routed to, and how many frames it has delivered so far.
type PipelineStatus interface {
	CheckReadiness(ctx context.Context) error
	FramesProcessed() int64
}

// readyCheckTimeout bounds the readiness check so a wedged pipeline cannot
// hang the check.
const readyCheckTimeout = 2 * time.Second

// Server answers operational checks for the buoy telemetry ETL service.
type Server struct {
	httpServer *http.Server
	status     PipelineStatus
	logger     *slog.Logger
}

// NewServer wires /healthz, /readyz, and /metrics against the given pipeline.
func NewServer(addr string, status PipelineStatus, logger *slog.Logger) *Server {
	s := &Server{status: status, logger: logger}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
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

// handleHealth reports process liveness only; it stays green while the
// pipeline is still catching up.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "buoy-telemetry-etl",
	})
}

// handleReady gates on the pipeline having delivered at least one frame to
// the sink, and reports its progress alongside the verdict.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
	defer cancel()

	if err := s.status.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ready",
		"frames_processed": s.status.FramesProcessed(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
