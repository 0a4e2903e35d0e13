package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/tgedin/sentimentflow/internal/adapter/httpserver"
	"github.com/tgedin/sentimentflow/internal/adapter/inference"
	"github.com/tgedin/sentimentflow/internal/adapter/postgres"
	"github.com/tgedin/sentimentflow/internal/adapter/redis"
	"github.com/tgedin/sentimentflow/internal/app"
	"github.com/tgedin/sentimentflow/internal/platform/config"
	"github.com/tgedin/sentimentflow/internal/platform/logging"
	"github.com/tgedin/sentimentflow/internal/sentiment"
)

const cacheEvictionInterval = time.Minute

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

// setupCacheStore picks the cache backend: Redis when configured,
// otherwise the in-process store. The returned stop function tears down
// the eviction timer for the memory backend.
func setupCacheStore(cfg *config.Config, clock clockwork.Clock) (sentiment.CacheStore, *goredis.Client, func()) {
	if cfg.RedisURL == "" {
		slog.Info("REDIS_URL not set, using in-memory result cache")
		store := sentiment.NewMemoryStore(clock)
		stop := store.StartEvictionTimer(cacheEvictionInterval)
		return store, nil, stop
	}

	client, err := redis.NewClient(context.Background(), cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return redis.NewResultStore(client), client, func() {}
}

func runGracefulShutdown(srv *httpserver.Server, cleanup func()) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		cleanup()
		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	cacheStore, redisClient, stopEviction := setupCacheStore(cfg, clock)
	defer stopEviction()
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	runtime := inference.NewClient(cfg.InferenceURL, cfg.RequestTimeout)

	catalog := sentiment.DefaultCatalog()
	if _, ok := catalog.Get(cfg.DefaultModel); !ok {
		slog.Error("DEFAULT_MODEL is not in the model catalog", "model", cfg.DefaultModel)
		os.Exit(1)
	}

	registry := sentiment.NewRegistry(catalog, runtime, clock)
	analyzer := sentiment.NewAnalyzer(registry, clock, cfg.DefaultModel, cfg.BatchConcurrency)
	cache := sentiment.NewResultCache(cacheStore, cfg.CacheTTL)
	history := postgres.NewHistoryRepo(pool)

	appSvc := app.NewService(registry, analyzer, cache, history,
		cfg.RequestTimeout, cfg.MaxBatchSize, cfg.BatchConcurrency)

	healthChecks := []httpserver.HealthCheck{
		{Name: "postgres", Check: pool.Ping},
	}
	if redisClient != nil {
		healthChecks = append(healthChecks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	srv := httpserver.NewServer(cfg, appSvc, healthChecks)

	done := runGracefulShutdown(srv, func() {})

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
