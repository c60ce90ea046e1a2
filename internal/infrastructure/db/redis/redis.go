// Package redis backs the shared cache regions with Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultTimeout = 5 * time.Second
	clientName     = "alexandria-cache"
)

// Config selects the Redis instance that holds the cache regions. Every
// process of one deployment must point at the same Addr and DB.
type Config struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
}

func (cfg Config) timeout() time.Duration {
	if cfg.Timeout <= 0 {
		return defaultTimeout
	}
	return cfg.Timeout
}

// options bounds every command by the configured timeout so a slow Redis
// turns into cache misses instead of stalled requests.
func (cfg Config) options() *redis.Options {
	t := cfg.timeout()
	return &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ClientName:   clientName,
		DialTimeout:  t,
		ReadTimeout:  t,
		WriteTimeout: t,
	}
}

// Connect opens the client and fails fast when the server does not answer
// a ping, so a misconfigured cache backend stops startup.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(cfg.options())

	pingCtx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}
