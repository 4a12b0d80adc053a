package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("CACHE_TTL", "not-a-duration")
	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("PUBLIC_URL", "https://onboard.example.com/")
	t.Setenv("STORAGE", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 10*time.Minute, cfg.Redis.TTL)
	assert.Equal(t, 7, cfg.DB.MaxOpenConns)
	assert.Equal(t, "https://onboard.example.com", cfg.PublicURL)
	assert.Contains(t, cfg.DB.DSN(), "sslmode=disable")
	assert.Equal(t, "memory", cfg.Storage)
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}
