package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv string `env:"APP_ENV" default:"development"`
	Port   string `env:"PORT" default:"8080"`

	DatabaseURL string `env:"DATABASE_URL"`
	// RedisURL is optional; when empty the result cache falls back to the
	// in-memory backend.
	RedisURL string `env:"REDIS_URL"`

	InferenceURL string `env:"INFERENCE_URL"`
	DefaultModel string `env:"DEFAULT_MODEL" default:"distilbert-base-uncased-finetuned-sst-2-english"`

	CacheTTL       time.Duration `env:"CACHE_TTL" default:"1h"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" default:"30s"`

	MaxBatchSize     int `env:"MAX_BATCH_SIZE" default:"100"`
	BatchConcurrency int `env:"BATCH_CONCURRENCY" default:"4"`

	RateLimitPerSecond float64 `env:"RATE_LIMIT_PER_SECOND" default:"20"`
	RateLimitBurst     int     `env:"RATE_LIMIT_BURST" default:"40"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"DATABASE_URL":  cfg.DatabaseURL,
		"INFERENCE_URL": cfg.InferenceURL,
		"DEFAULT_MODEL": cfg.DefaultModel,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if cfg.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %s", cfg.CacheTTL)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", cfg.RequestTimeout)
	}
	if cfg.MaxBatchSize < 1 {
		return fmt.Errorf("MAX_BATCH_SIZE must be at least 1, got %d", cfg.MaxBatchSize)
	}
	if cfg.BatchConcurrency < 1 {
		return fmt.Errorf("BATCH_CONCURRENCY must be at least 1, got %d", cfg.BatchConcurrency)
	}

	return nil
}
