// Command magnetite runs the content server: it loads configuration, opens
// the store, starts the content service and serves HTTP until SIGINT or
// SIGTERM.
package main

import (
	"context"
	"time"

	"github.com/deppfellow/magnetite/internal/config"
	"github.com/deppfellow/magnetite/internal/handler"
	"github.com/deppfellow/magnetite/internal/lifecycle"
	"github.com/deppfellow/magnetite/internal/logger"
	"github.com/deppfellow/magnetite/internal/router"
	"github.com/deppfellow/magnetite/internal/server"
	"github.com/deppfellow/magnetite/internal/service"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	loggerService := logger.NewLoggerService(cfg.Observability)
	defer loggerService.Shutdown()

	log := logger.NewLoggerWithService(cfg.Observability, loggerService)
	log.Info().Str("env", cfg.Primary.Env).Str("driver", cfg.Database.Driver).Msg("magnetite starting")

	lc := lifecycle.New(context.Background(), &log)
	ctx := lc.Context()

	srv, err := server.New(ctx, cfg, &log, loggerService)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize server")
	}

	services := service.NewServices(ctx, srv)
	srv.SetupHTTPServer(router.NewRouter(srv, handler.NewHandlers(srv, services)))

	lc.Go("content_service", services.Content.Run)
	lc.Go("http_server", func(context.Context) error {
		return srv.Start()
	})
	lc.Go("http_shutdown", func(ctx context.Context) error {
		<-ctx.Done()
		log.Info().Msg("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.ShutdownHTTP(shutdownCtx)
	})

	waitErr := lc.Wait()

	// Run has returned, so nothing uses the store any more.
	<-services.Content.Done()
	if err := srv.Close(); err != nil {
		log.Error().Err(err).Msg("failed to release store")
	}

	if waitErr != nil {
		log.Error().Err(waitErr).Msg("magnetite stopped with error")
		return
	}
	log.Info().Msg("magnetite stopped")
}
