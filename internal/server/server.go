// Package server holds the application container: configuration, logging,
// the store and its connection pool, the metrics registry and the HTTP
// server. Services, handlers and middlewares receive it to reach shared
// dependencies.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/deppfellow/magnetite/internal/config"
	"github.com/deppfellow/magnetite/internal/database"
	"github.com/deppfellow/magnetite/internal/metrics"
	"github.com/deppfellow/magnetite/internal/repository"
	"github.com/deppfellow/magnetite/internal/repository/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	loggerPkg "github.com/deppfellow/magnetite/internal/logger"
)

type Server struct {
	Config        *config.Config
	Logger        *zerolog.Logger
	LoggerService *loggerPkg.LoggerService

	// DB is nil unless the postgres driver is selected.
	DB    *database.Database
	Store repository.Store

	Registry *prometheus.Registry
	Metrics  *metrics.Prometheus

	httpServer *http.Server
}

// New opens the configured store and prepares the metrics registry.
// Postgres migrations are applied before the pool is opened. Any failure
// aborts startup.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) (*Server, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		Config:        cfg,
		Logger:        logger,
		LoggerService: loggerService,
		Registry:      registry,
		Metrics:       metrics.NewPrometheus(registry),
	}

	switch cfg.Database.Driver {
	case "postgres":
		if err := database.Migrate(ctx, logger, &cfg.Database); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}

		db, err := database.New(ctx, cfg, logger, loggerService)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		s.DB = db
		s.Store = repository.NewPostgresStore(db.Pool)

	case "sqlite":
		store, err := sqlite.Open(ctx, cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		logger.Info().Str("path", cfg.Database.Path).Msg("opened sqlite store")
		s.Store = store

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	return s, nil
}

// SetupHTTPServer configures the HTTP server around handler.
func (s *Server) SetupHTTPServer(handler http.Handler) {
	s.httpServer = &http.Server{
		Addr:         ":" + s.Config.Server.Port,
		Handler:      handler,
		ReadTimeout:  time.Duration(s.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.Config.Server.IdleTimeout) * time.Second,
	}
}

// Start serves HTTP until Shutdown. A clean shutdown returns nil.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return errors.New("HTTP server not initialized")
	}

	s.Logger.Info().
		Str("port", s.Config.Server.Port).
		Str("env", s.Config.Primary.Env).
		Msg("starting server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ShutdownHTTP stops accepting requests and waits for in-flight ones.
func (s *Server) ShutdownHTTP(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}

// Close releases the store. Call it only after the content service has
// stopped.
func (s *Server) Close() error {
	var errList []error

	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			errList = append(errList, fmt.Errorf("failed to close store: %w", err))
		}
	}
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			errList = append(errList, fmt.Errorf("failed to close database connection: %w", err))
		}
	}

	return errors.Join(errList...)
}
