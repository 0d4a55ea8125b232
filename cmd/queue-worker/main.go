package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sungwon/newsletter/internal/config"
	"github.com/sungwon/newsletter/internal/logger"
	"github.com/sungwon/newsletter/internal/provider"
	"github.com/sungwon/newsletter/internal/queue"
	"github.com/sungwon/newsletter/internal/storage"
	"github.com/sungwon/newsletter/internal/worker"
)

func main() {
	cfg, err := config.Load("config")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewFromOptions(logger.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Output:    cfg.Logging.Output,
		FilePath:  cfg.Logging.FilePath,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	})
	log.Info().Msg("starting queue worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database connection pool.
	db, err := storage.NewDB(ctx, cfg.Database.URL, cfg.Database.PoolMin, cfg.Database.PoolMax, cfg.Database.ConnectTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	queries := db.Queries()

	// Initialize the outbound email transport.
	emailClient, err := provider.NewEmailClientFromConfig(cfg.Email)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure email provider")
	}
	if err := emailClient.Provider().HealthCheck(ctx); err != nil {
		log.Warn().Err(err).Str("provider", emailClient.Provider().GetName()).Msg("email provider health check failed")
	}

	// Create and start worker pool.
	poolCfg := worker.PoolConfigFrom(cfg.Delivery)
	pool := worker.NewPool(queue.NewPostgres(db), emailClient, queries, poolCfg, log)
	pool.Start(ctx)
	log.Info().
		Int("workers", poolCfg.Workers).
		Dur("poll_interval", poolCfg.Worker.PollInterval).
		Bool("retry_transient", poolCfg.Worker.RetryTransient).
		Msg("queue worker pool started")

	// Wait for interrupt signal for graceful shutdown.
	<-ctx.Done()

	log.Info().Msg("shutting down queue worker")
	pool.Stop()
	log.Info().Msg("queue worker stopped")
}
