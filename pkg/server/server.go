package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"labops/runsweep/pkg/intent/filestore"
	"labops/runsweep/pkg/lifecycle"
	"labops/runsweep/pkg/reconcile"
	"labops/runsweep/pkg/telemetry/health"
)

// Config configures the status server.
type Config struct {
	ListenAddress   string
	MetricsPath     string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration

	Version   string
	Commit    string
	BuildTime string
}

// CycleStatus exposes the scheduler state.
type CycleStatus interface {
	Last() (*reconcile.Report, error)
	NextRun() *time.Time
}

// IntentLoader reads the pending deletion batch.
type IntentLoader func(ctx context.Context) ([]lifecycle.IntentRecord, error)

// Deps are the handlers' collaborators. Metrics and Intents may be nil.
type Deps struct {
	Health  *health.Checker
	Metrics http.Handler
	Cycles  CycleStatus
	Intents IntentLoader
}

// Server serves health probes, metrics and the cycle status API.
type Server struct {
	cfg          Config
	deps         Deps
	httpServer   *http.Server
	logger       *slog.Logger
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New creates a status server.
func New(cfg Config, deps Deps) *Server {
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if deps.Health == nil {
		deps.Health = health.New(0)
	}
	return &Server{
		cfg:    cfg,
		deps:   deps,
		logger: slog.Default().With("component", "server"),
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.httpServer = &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting status server", "address", s.cfg.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.isRunning {
			return
		}

		shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}
		s.isRunning = false
		s.logger.Info("status server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether Start is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	r.Get("/healthz", s.deps.Health.LivenessHandler())
	r.Get("/readyz", s.deps.Health.ReadinessHandler())
	r.Get("/version", health.VersionHandler(s.cfg.Version, s.cfg.Commit, s.cfg.BuildTime))
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, s.cfg.MetricsPath, s.deps.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/intents", s.handleIntents)
		r.Get("/cycles/last", s.handleLastCycle)
	})
	return r
}

type intentsResponse struct {
	Count   int                      `json:"count"`
	Records []lifecycle.IntentRecord `json:"records"`
}

func (s *Server) handleIntents(w http.ResponseWriter, r *http.Request) {
	if s.deps.Intents == nil {
		respondError(w, http.StatusNotFound, "intent store not configured")
		return
	}
	records, err := s.deps.Intents(r.Context())
	switch {
	case errors.Is(err, filestore.ErrLocked):
		respondError(w, http.StatusConflict, "intent store is in use by a running cycle")
		return
	case err != nil:
		s.logger.ErrorContext(r.Context(), "failed to load intents", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load intents")
		return
	}
	if records == nil {
		records = []lifecycle.IntentRecord{}
	}
	respondJSON(w, http.StatusOK, intentsResponse{Count: len(records), Records: records})
}

type cycleResponse struct {
	Report  *reconcile.Report `json:"report,omitempty"`
	Error   string            `json:"error,omitempty"`
	NextRun *time.Time        `json:"next_run,omitempty"`
}

func (s *Server) handleLastCycle(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Cycles == nil {
		respondError(w, http.StatusNotFound, "scheduler not configured")
		return
	}
	report, err := s.deps.Cycles.Last()
	resp := cycleResponse{Report: report, NextRun: s.deps.Cycles.NextRun()}
	if err != nil {
		resp.Error = err.Error()
	}
	if report == nil && err == nil {
		respondJSON(w, http.StatusNoContent, nil)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	if body == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
