package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "data/catalog.db", cfg.Store.SQLitePath)
	assert.Equal(t, "filesystem", cfg.Blob.Driver)
	assert.Equal(t, 168*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 8*time.Second, cfg.TMDB.Timeout)
	assert.Equal(t, "admin@kaf.local", cfg.Admin.Email)
	assert.Equal(t, "admin123", cfg.Admin.Password)

	assert.Empty(t, cfg.JWTSecret)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "redis")
	t.Setenv("REDIS_PREFIX", "cat:")
	t.Setenv("TMDB_API_KEY", "key")
	t.Setenv("TMDB_TIMEOUT", "3s")
	t.Setenv("ADMIN_EMAIL", "root@example.com")
	t.Setenv("AUTH_RATE_PER_MIN", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, "cat:", cfg.Store.RedisPrefix)
	assert.Equal(t, "key", cfg.TMDB.APIKey)
	assert.Equal(t, 3*time.Second, cfg.TMDB.Timeout)
	assert.Equal(t, "root@example.com", cfg.Admin.Email)
	assert.Equal(t, 5, cfg.Auth.RatePerMinute)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}

func TestLoad_UnknownDrivers(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "store", key: "STORE_DRIVER", val: "mongo"},
		{name: "blob", key: "BLOB_DRIVER", val: "s3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.ErrorContains(t, err, tt.val)
		})
	}
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("JWT_TTL", "a week")
	_, err := Load()
	assert.Error(t, err)
}
