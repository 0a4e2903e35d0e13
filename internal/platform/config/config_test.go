package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/sentimentflow")
	t.Setenv("INFERENCE_URL", "http://localhost:9090")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "distilbert-base-uncased-finetuned-sst-2-english", cfg.DefaultModel)
	assert.Equal(t, 100, cfg.MaxBatchSize)
	assert.Equal(t, 4, cfg.BatchConcurrency)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("INFERENCE_URL", "http://localhost:9090")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_MissingInferenceURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/sentimentflow")
	t.Setenv("INFERENCE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INFERENCE_URL")
}

func TestLoad_InvalidCacheTTL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CACHE_TTL", "-5m")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_TTL")
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAX_BATCH_SIZE", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_BATCH_SIZE")
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CACHE_TTL", "10m")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("BATCH_CONCURRENCY", "8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	assert.Equal(t, 8, cfg.BatchConcurrency)
	assert.Equal(t, "10m0s", cfg.CacheTTL.String())
}
