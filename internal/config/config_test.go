package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("STORE_READ_RETRIES", "")
	t.Setenv("DEFAULT_LOCALE", "")
	t.Setenv("APP_ENV", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "maintenance-service", cfg.App.Name)
	assert.Empty(t, cfg.Postgres.DSN)
	assert.Equal(t, 3, cfg.Store.ReadRetries)
	assert.Equal(t, "en", cfg.App.DefaultLocale)
	assert.Equal(t, time.Minute, cfg.Redis.CacheTTL())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_READ_RETRIES", "5")
	t.Setenv("DEFAULT_LOCALE", "RU")
	t.Setenv("REDIS_CACHE_TTL_SECONDS", "10")
	t.Setenv("REDIS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Store.ReadRetries)
	assert.Equal(t, "ru", cfg.App.DefaultLocale)
	assert.Equal(t, 10*time.Second, cfg.Redis.CacheTTL())
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("STORE_READ_RETRIES", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET")
	assert.Contains(t, err.Error(), "STORE_READ_RETRIES")
}

func TestInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "abc")
	_, err := Load()
	require.Error(t, err)
}
