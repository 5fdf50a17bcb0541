package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/cholera-map-dashboard/internal/domain"
)

// Runner executes one dashboard run per call.
type Runner interface {
	sharedobs.ReadinessChecker
	Run(ctx context.Context) (domain.Snapshot, error)
}

// Renderer writes a snapshot as an HTML page.
type Renderer interface {
	Render(w io.Writer, snap domain.Snapshot) error
}

// Server exposes the dashboard page, its data API, and health, readiness,
// and metrics endpoints.
type Server struct {
	httpServer *http.Server
	runner     Runner
	renderer   Renderer
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /, /api/summary, /api/layers/{name},
// /healthz, /readyz, and /metrics routes.
func NewServer(addr string, runner Runner, renderer Renderer, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		runner:   runner,
		renderer: renderer,
		logger:   logger,
	}

	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/layers/{name}", s.handleLayer)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(runner))
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

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.run(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.Render(w, snap); err != nil {
		s.logger.Error("render dashboard failed", "run_id", snap.RunID, "error", err)
		http.Error(w, "render dashboard: "+err.Error(), http.StatusInternalServerError)
	}
}

type summaryResponse struct {
	domain.Summary
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.run(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Summary:     snap.Summary,
		RunID:       snap.RunID,
		GeneratedAt: snap.GeneratedAt,
	})
}

func (s *Server) handleLayer(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name != domain.DatasetDeaths && name != domain.DatasetPumps {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown layer " + name})
		return
	}

	snap, ok := s.run(w, r)
	if !ok {
		return
	}
	layer, _ := snap.Map.Layer(name)
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(layer.FeatureCollection()) //nolint:errcheck // client may have gone away
}

// run executes a fresh dashboard run for the request. Failures are written to
// w as a 500 with the error text and reported as !ok.
func (s *Server) run(w http.ResponseWriter, r *http.Request) (domain.Snapshot, bool) {
	snap, err := s.runner.Run(r.Context())
	if err != nil {
		http.Error(w, "dashboard run failed: "+err.Error(), http.StatusInternalServerError)
		return domain.Snapshot{}, false
	}
	return snap, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
