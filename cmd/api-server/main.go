package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sungwon/newsletter/internal/api"
	"github.com/sungwon/newsletter/internal/auth"
	"github.com/sungwon/newsletter/internal/bootstrap"
	"github.com/sungwon/newsletter/internal/config"
	"github.com/sungwon/newsletter/internal/logger"
	"github.com/sungwon/newsletter/internal/metrics"
	"github.com/sungwon/newsletter/internal/newsletter"
	"github.com/sungwon/newsletter/internal/provider"
	"github.com/sungwon/newsletter/internal/queue"
	"github.com/sungwon/newsletter/internal/storage"
	"github.com/sungwon/newsletter/internal/subscription"
	"github.com/sungwon/newsletter/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewFromOptions(logger.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Output:    cfg.Logging.Output,
		FilePath:  cfg.Logging.FilePath,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	})
	log.Info().Msg("starting API server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := storage.NewDB(
		ctx,
		cfg.Database.URL,
		cfg.Database.PoolMin,
		cfg.Database.PoolMax,
		cfg.Database.ConnectTimeout,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	log.Info().Msg("database connection established")

	queries := db.Queries()

	if err := bootstrap.SeedOperator(ctx, queries, log, cfg.Auth.OperatorUsername, cfg.Auth.OperatorPassword); err != nil {
		log.Fatal().Err(err).Msg("failed to seed operator account")
	}

	// Connect to Redis for sessions and login throttling
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer redisClient.Close()

	if cfg.Auth.FlashKey == "" || cfg.Auth.FlashKey == "change-me-in-production-use-a-strong-secret" {
		log.Warn().Msg("flash signing key is not set or using default value; set NEWSLETTER_AUTH_FLASH_KEY in production")
	}

	emailClient, err := provider.NewEmailClientFromConfig(cfg.Email)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure email provider")
	}

	subscriptions := subscription.NewService(subscription.NewPostgresStore(db), emailClient, cfg.API.BaseURL, log)
	coordinator := newsletter.NewCoordinator(newsletter.NewPostgresStore(db), log)

	router := api.NewRouter(api.RouterConfig{
		DB:          db,
		Users:       queries,
		Sessions:    auth.NewRedisSessionStore(redisClient, cfg.Auth.SessionTTL),
		Throttle:    auth.NewLoginThrottle(redisClient, cfg.Auth.LoginAttemptsLimit, cfg.Auth.LoginLockoutDuration),
		FlashSigner: auth.NewFlashSigner(cfg.Auth.FlashKey),
		Subscriber:  subscriptions,
		Publisher:   coordinator,
		SessionTTL:  cfg.Auth.SessionTTL,
		Log:         log,
	})

	// Optionally drain the delivery queue in-process
	var pool *worker.Pool
	if cfg.Delivery.EmbeddedWorker {
		pool = worker.NewPool(queue.NewPostgres(db), emailClient, queries, worker.PoolConfigFrom(cfg.Delivery), log)
		pool.Start(ctx)
		log.Info().Int("workers", cfg.Delivery.Workers).Msg("embedded delivery workers started")
	}

	go reportPoolStats(ctx, db)

	// Configure HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("API server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info().Msg("shutting down server")

	// Graceful shutdown with 30-second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if pool != nil {
		pool.Stop()
	}

	log.Info().Msg("server stopped")
}

// reportPoolStats refreshes the connection pool gauges until ctx is done.
func reportPoolStats(ctx context.Context, db *storage.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		metrics.RecordPoolStats(db.Pool)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
