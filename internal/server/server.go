// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer. It connects handlers, middleware, and
// routes, and owns the lifecycle of everything that must be closed on
// shutdown.
//
// DEPENDENCY INJECTION FLOW:
//
//	New() creates: sqlite.DB ─┐
//	               worker.Pool ┼→ UserService → UserHandler → routes
//	               metrics ────┘
//
// Nothing is a package-level singleton. Every request handler reaches the
// connection pool only through the service it was constructed with.
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

	"github.com/sakif/userbook/internal/handler"
	"github.com/sakif/userbook/internal/metrics"
	"github.com/sakif/userbook/internal/middleware"
	sqliteRepo "github.com/sakif/userbook/internal/repository/sqlite"
	"github.com/sakif/userbook/internal/service"
	"github.com/sakif/userbook/internal/worker"
)

// Config holds server configuration.
type Config struct {
	Addr      string
	DBPath    string
	DBOptions sqliteRepo.Options
	Workers   int

	// SkipMigrate leaves the schema alone at boot. The users table must
	// then already exist.
	SkipMigrate bool

	// ShutdownTimeout bounds how long in-flight requests get after a signal.
	ShutdownTimeout time.Duration
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE OWNERSHIP:
// The Server owns the database pool and the worker pool. Close stops the
// workers first (so no job is mid-query) and then closes the database.
type Server struct {
	router  *chi.Mux
	config  Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	workers *worker.Pool
	metrics *metrics.Metrics
}

// New opens the database, applies migrations, starts the worker pool and
// builds the router. On error everything opened so far is closed again.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	db, err := sqliteRepo.New(cfg.DBPath, cfg.DBOptions)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if !cfg.SkipMigrate {
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
	}

	workers := worker.New(worker.Config{Size: cfg.Workers}, logger)
	workers.Start()

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		workers: workers,
		metrics: metrics.New(),
	}
	s.setupRoutes()

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET  /          → plain-text greeting (health-check)
// POST /users     → get-or-create user by name (JSON)
// GET  /getusers  → list every user (JSON)
// GET  /metrics   → Prometheus exposition
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID  tags the request (xid), echoes X-Request-ID
// 2. RealIP     extracts real client IP from proxy headers
// 3. Logger     one log line per request, with the request id
// 4. Metrics    request counter and latency per route pattern
// 5. Recoverer  turns a handler panic into a 500 the two above can see
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics(s.metrics))
	s.router.Use(chimiddleware.Recoverer)

	userService := service.NewUserService(s.db, s.workers, s.metrics, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)

	s.router.Get("/", handler.HandleRoot)
	s.router.Post("/users", userHandler.HandleCreate)
	s.router.Get("/getusers", userHandler.HandleList)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
}

// Handler returns the fully wired router. Tests mount it on httptest.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close stops the worker pool and closes the database.
func (s *Server) Close() error {
	s.workers.Stop()
	return s.db.Close()
}

// Start starts the HTTP server and blocks until it stops.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (ShutdownTimeout)
// 3. Stop the worker pool and close the database (Close)
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("addr", s.config.Addr),
			slog.String("database", s.config.DBPath),
			slog.Int("workers", s.workers.Size()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
