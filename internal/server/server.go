// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware, and
// routes, and decides:
// - Which URL patterns map to which handler functions
// - Which routes sit behind the authorization gate
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// cmd/server builds a *config.Config and calls New, which creates:
//
//	Database (sqlite or postgres, chosen by DSN)
//	  → AuthService (+ TokenService, PasswordService, metrics Collector)
//	    → AuthHandler
//
// This is the "composition root" pattern: all dependencies are wired in one
// place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sakif/luno/internal/auth"
	"github.com/sakif/luno/internal/config"
	"github.com/sakif/luno/internal/handler"
	"github.com/sakif/luno/internal/metrics"
	"github.com/sakif/luno/internal/middleware"
	"github.com/sakif/luno/internal/repository"
	"github.com/sakif/luno/internal/repository/postgres"
	"github.com/sakif/luno/internal/repository/sqlite"
	"github.com/sakif/luno/internal/service"
)

// Database is a user store that can also migrate its own schema.
// Both repository implementations satisfy it.
type Database interface {
	repository.Store
	repository.Migrator
}

// OpenDatabase connects to the store named by dsn without migrating it.
// A postgres:// or postgresql:// URL selects Postgres; anything else is a
// SQLite file path.
func OpenDatabase(ctx context.Context, dsn string) (Database, error) {
	if postgres.IsDSN(dsn) {
		db, err := postgres.Open(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := sqlite.Open(dsn)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start closes it during graceful
// shutdown; callers that never Start must call Close.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	db       Database
	registry *prometheus.Registry
	metrics  *metrics.Collector
}

// New validates cfg, opens and migrates the database, and wires every route.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.TokenConfig())
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	// === CREATE DATABASE ===
	db, err := OpenDatabase(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.MigrateUp(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	// A private registry keeps the scrape output to what this process
	// registered, and lets tests build many servers side by side.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		registry: registry,
		metrics:  metrics.NewCollector(registry),
	}

	s.setupRoutes(tokens, auth.NewPasswordService(cfg.Auth.BcryptCost))
	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /health                    → database liveness
// GET    /metrics                   → Prometheus scrape endpoint
// POST   /api/auth/register         → create account, returns token
// POST   /api/auth/login            → returns token
// GET    /api/auth/me               → current user      [bearer]
// PUT    /api/auth/profile          → update names      [bearer]
// POST   /api/auth/change-password  → change password   [bearer]
// POST   /api/auth/logout           → acknowledge       [bearer]
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns a unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Logger: logs each request with timing info and the request ID
// 4. Recoverer: catches panics and returns 500 instead of crashing
// 5. Metrics: request latency by route pattern
// 6. Secure: security headers on every response
func (s *Server) setupRoutes(tokens *auth.TokenService, passwords *auth.PasswordService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Metrics(s.metrics))
	s.router.Use(middleware.Secure(middleware.SecureOptions(s.config.Server.SecureDev)))

	s.router.NotFound(handler.NotFound)
	s.router.MethodNotAllowed(handler.MethodNotAllowed)

	// DEPENDENCY CHAIN:
	//   s.db implements repository.UserRepository
	//   AuthService receives the repository interface
	//   AuthHandler receives the service
	authService := service.NewAuthService(s.db, tokens, passwords, s.logger, service.WithMetrics(s.metrics))
	authHandler := handler.NewAuthHandler(authService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	s.router.Get("/health", healthHandler.HandleHealth)
	s.router.Handle("/metrics", metrics.Handler(s.registry))

	// Every rejected bearer token is counted before the 401 goes out.
	requireAuth := auth.RequireAuth(tokens, auth.OnReject(func(*http.Request) {
		s.metrics.RecordTokenRejected()
	}))

	s.router.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", authHandler.HandleMe)
			r.Put("/profile", authHandler.HandleUpdateProfile)
			r.Post("/change-password", authHandler.HandleChangePassword)
			r.Post("/logout", authHandler.HandleLogout)
		})
	})
}

// Handler exposes the fully wired router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database connection.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start runs the HTTP server until ctx is cancelled or the process receives
// SIGINT/SIGTERM, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection
func (s *Server) Start(ctx context.Context) error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("database", redactDSN(s.config.Database.DSN)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// redactDSN hides credentials in a postgres URL before it is logged.
func redactDSN(dsn string) string {
	if !postgres.IsDSN(dsn) {
		return dsn
	}
	return postgres.Redact(dsn)
}
