// Package web provides the HTTP surface for triggering synchronization
// runs and inspecting service health.
package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/evanrobinson2/olisync/internal/config"
	"github.com/evanrobinson2/olisync/internal/sync"
	"github.com/evanrobinson2/olisync/internal/web/middleware"
)

// SyncRunner executes one synchronization run.
type SyncRunner interface {
	Run(ctx context.Context) (*sync.Summary, error)
}

// Server is the HTTP server wrapping a SyncRunner.
type Server struct {
	runner SyncRunner
	router *chi.Mux
	server *http.Server
}

// NewServer creates a Server instance.
func NewServer(runner SyncRunner, cfg *config.Config) *Server {
	s := &Server{
		runner: runner,
		router: chi.NewRouter(),
	}

	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Timeout(cfg.Server.RequestTimeout))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Post("/api/sync", s.handleSync)

	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// Start begins serving. It blocks until the server stops.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
