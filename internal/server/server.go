// =============================================================================
// Trade Document Reconciler - HTTP Server
// =============================================================================
//
// This module exposes reconciliation over HTTP.
//
// ENDPOINTS:
//   | Method | Path                          | Purpose                         |
//   |--------|-------------------------------|---------------------------------|
//   | POST   | /api/reconcile                | upload primary + secondary      |
//   | GET    | /api/runs/{runID}/export      | download a run (xlsx/html/...)  |
//   | GET    | /api/templates                | list configured templates       |
//   | GET    | /healthz                      | liveness                        |
//   | GET    | /metrics                      | Prometheus metrics              |
//
// SESSIONS:
//   Finished runs are retained per client session (X-Session-ID header or
//   session_id cookie; a new one is issued when absent). A run can only be
//   exported by the session that created it.
//
// =============================================================================

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ginjaninja78/tradedoc-reconciler/internal/cache"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/config"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/metrics"
	"github.com/ginjaninja78/tradedoc-reconciler/internal/pipeline"
)

// Session transport names.
const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "session_id"
)

// Server is the HTTP front end.
type Server struct {
	cfg       *config.MainConfig
	templates map[string]*config.TemplateConfig
	pipelines map[string]*pipeline.Pipeline
	store     *cache.Store
	recorder  *metrics.Recorder
	logger    *slog.Logger
}

// New creates a Server and compiles a pipeline per template. The built-in
// template is always available under the code "default" unless a template
// file uses that code.
func New(cfg *config.MainConfig, templates map[string]*config.TemplateConfig, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:       cfg,
		templates: make(map[string]*config.TemplateConfig, len(templates)+1),
		pipelines: make(map[string]*pipeline.Pipeline, len(templates)+1),
		store:     cache.New(cfg.Server.CacheSize, cfg.Server.CacheTTL),
		recorder:  metrics.New(),
		logger:    logger.With(slog.String("component", "server")),
	}

	for code, tmpl := range templates {
		s.templates[code] = tmpl
	}
	if _, ok := s.templates["default"]; !ok {
		s.templates["default"] = config.DefaultTemplate()
	}

	for code, tmpl := range s.templates {
		p, err := pipeline.New(tmpl, cfg.Limits,
			pipeline.WithLogger(logger),
			pipeline.WithRecorder(s.recorder))
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", code, err)
		}
		s.pipelines[code] = p
	}

	return s, nil
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(structuredLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.recorder.Handler())

	r.Route("/api", func(r chi.Router) {
		if s.cfg.Server.RateLimitRPS > 0 {
			r.Use(newRateLimiter(s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger).handler)
		}
		r.Post("/reconcile", s.handleReconcile)
		r.Get("/runs/{runID}/export", s.handleExport)
		r.Get("/templates", s.handleTemplates)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
