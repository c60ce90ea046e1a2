package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
	assert.Equal(t, 500, cfg.Cache.Capacity)
	assert.Equal(t, 30*time.Minute, cfg.Cache.AccessTTL)
	assert.Equal(t, time.Hour, cfg.Cache.WriteTTL)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":           "s3cret",
		"ENV":                  "production",
		"STORE_DRIVER":         "Mongo",
		"CACHE_BACKEND":        "redis",
		"REDIS_PASSWORD":       "hunter2",
		"CACHE_CAPACITY":       "50",
		"CACHE_ACCESS_TTL":     "10s",
		"EXTERNAL_ID_ISSUER":   "https://id.example.com",
		"EXTERNAL_ID_AUDIENCE": "alexandria",
		"AUTH_RATE_LIMIT":      "0.5",
	}))
	require.NoError(t, err)

	assert.Equal(t, StoreMongo, cfg.Store.Driver)
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, "hunter2", cfg.Redis.Password)
	assert.Equal(t, 50, cfg.Cache.Capacity)
	assert.Equal(t, 10*time.Second, cfg.Cache.AccessTTL)
	assert.Equal(t, "https://id.example.com", cfg.External.Issuer)
	assert.Equal(t, 0.5, cfg.AuthRateLimit)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadFrom_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret": {},
		"bad driver":     {"JWT_SECRET": "x", "STORE_DRIVER": "postgres"},
		"bad backend":    {"JWT_SECRET": "x", "CACHE_BACKEND": "memcached"},
		"zero capacity":  {"JWT_SECRET": "x", "CACHE_CAPACITY": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(context.Background(), envconfig.MapLookuper(env))
			assert.Error(t, err)
		})
	}
}
