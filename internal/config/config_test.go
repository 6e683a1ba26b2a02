package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/cv-screening-pipeline/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, "local", cfg.StorageBackend)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 1536, cfg.EmbeddingDims)
	assert.Equal(t, 10*time.Minute, cfg.StuckThreshold)
	assert.Equal(t, "gpt-4o", cfg.LLMModel)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingsModel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("POLL_INTERVAL", "500ms")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("DB_URL", "postgres://u:p@db:5432/x")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProd())
	assert.False(t, cfg.IsDev())
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.DBURL)
}

func TestGetAIBackoffConfig(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	cfg, err := config.Load()
	require.NoError(t, err)
	maxElapsed, initial, maxInterval, mult := cfg.GetAIBackoffConfig()
	assert.Equal(t, 5*time.Second, maxElapsed)
	assert.Equal(t, 100*time.Millisecond, initial)
	assert.Equal(t, time.Second, maxInterval)
	assert.Equal(t, 2.0, mult)

	t.Setenv("APP_ENV", "prod")
	cfg, err = config.Load()
	require.NoError(t, err)
	maxElapsed, _, _, _ = cfg.GetAIBackoffConfig()
	assert.Equal(t, 180*time.Second, maxElapsed)
}
