// Package web provides the read-only status HTTP server of the loader.
//
// The server reports on load cycles but never starts one, so loading stays
// single-threaded no matter how often it is polled.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/invload/internal/core"
	localmw "github.com/JonMunkholm/invload/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// CycleSource reports the last finished load cycle. Satisfied by *core.Runner.
type CycleSource interface {
	LastCycle() (core.CycleResult, bool)
}

// Pinger checks database reachability. Satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// AuditReader returns the newest audit records.
type AuditReader func(ctx context.Context, limit int) ([]core.AuditEntry, error)

// Server is the status HTTP server.
type Server struct {
	cycles CycleSource
	db     Pinger
	audit  AuditReader

	router *chi.Mux
	server *http.Server
}

// NewServer creates a Server listening on addr. audit may be nil, which
// disables /audit.
func NewServer(addr string, cycles CycleSource, db Pinger, audit AuditReader) *Server {
	s := &Server{
		cycles: cycles,
		db:     db,
		audit:  audit,
		router: chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(localmw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(15 * time.Second))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/status", s.handleStatus)
	if s.audit != nil {
		s.router.Get("/audit", s.handleAudit)
	}
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	slog.Info("status server starting", "addr", s.server.Addr)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
