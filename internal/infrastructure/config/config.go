package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"

	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=24h"`

	// AuthRateLimit is requests per second per client IP on /auth routes.
	AuthRateLimit float64 `env:"AUTH_RATE_LIMIT, default=5"`

	Store    StoreConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Cache    CacheConfig
	External ExternalIDConfig
}

type StoreConfig struct {
	Driver     string `env:"STORE_DRIVER, default=sqlite"`
	SQLitePath string `env:"SQLITE_PATH,  default=alexandria.db"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=alexandria"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

type CacheConfig struct {
	Backend   string        `env:"CACHE_BACKEND,    default=memory"`
	Capacity  int           `env:"CACHE_CAPACITY,   default=500"`
	AccessTTL time.Duration `env:"CACHE_ACCESS_TTL, default=30m"`
	WriteTTL  time.Duration `env:"CACHE_WRITE_TTL,  default=1h"`
}

// ExternalIDConfig configures verification of third-party ID tokens. With
// neither a secret nor a public key set, external login is unavailable.
type ExternalIDConfig struct {
	Issuer    string `env:"EXTERNAL_ID_ISSUER"`
	Audience  string `env:"EXTERNAL_ID_AUDIENCE"`
	Secret    string `env:"EXTERNAL_ID_SECRET"`
	PublicKey string `env:"EXTERNAL_ID_PUBLIC_KEY"`
}

func (c *Config) IsDevelopment() bool { return c.Env == "development" }

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration from l and validates the result.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Store.Driver = strings.ToLower(cfg.Store.Driver)
	cfg.Cache.Backend = strings.ToLower(cfg.Cache.Backend)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET is required")
	}
	switch c.Store.Driver {
	case StoreSQLite, StoreMongo:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.Store.Driver)
	}
	switch c.Cache.Backend {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("config: unknown CACHE_BACKEND %q", c.Cache.Backend)
	}
	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("config: CACHE_CAPACITY must be positive")
	}
	return nil
}
