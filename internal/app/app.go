// Package app assembles the stores, cache, services and HTTP surface from
// configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/MrxHuang/alexandriaBackend/internal/api"
	"github.com/MrxHuang/alexandriaBackend/internal/api/handler"
	"github.com/MrxHuang/alexandriaBackend/internal/core/ports"
	"github.com/MrxHuang/alexandriaBackend/internal/core/service"
	"github.com/MrxHuang/alexandriaBackend/internal/infrastructure/auth"
	"github.com/MrxHuang/alexandriaBackend/internal/infrastructure/cache"
	"github.com/MrxHuang/alexandriaBackend/internal/infrastructure/config"
	"github.com/MrxHuang/alexandriaBackend/internal/infrastructure/db/mongo"
	"github.com/MrxHuang/alexandriaBackend/internal/infrastructure/db/redis"
	"github.com/MrxHuang/alexandriaBackend/internal/infrastructure/db/sqlite"
)

// App is a fully wired backend.
type App struct {
	Echo     *echo.Echo
	Accounts ports.AccountService
	Identity ports.IdentityService
	Loans    ports.LoanService
	Catalog  ports.CatalogService

	closers []func(context.Context) error
}

// stores is one persistence backend.
type stores struct {
	accounts ports.AccountRepository
	catalog  ports.CatalogRepository
	loans    ports.LoanRepository
	ping     handler.PingFunc
	close    func(context.Context) error
}

// New opens the configured backends, applies schema migrations and builds
// the services and router. Close releases everything New opened.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, st.close)
	health := map[string]handler.Pinger{cfg.Store.Driver: st.ping}

	c, err := a.openCache(ctx, cfg, log, health)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	provider, err := auth.NewIDTokenProvider(auth.IDTokenConfig{
		Issuer:    cfg.External.Issuer,
		Audience:  cfg.External.Audience,
		Secret:    cfg.External.Secret,
		PublicKey: cfg.External.PublicKey,
	})
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	hasher := auth.NewBcryptHasher(0)
	tokens := auth.NewJWTIssuer(cfg.JWTSecret, cfg.TokenTTL)

	a.Accounts = service.NewAccountService(st.accounts, hasher, log.With().Str("component", "accounts").Logger())
	a.Identity = service.NewIdentityService(a.Accounts, provider, tokens, hasher, log.With().Str("component", "identity").Logger())
	a.Loans = service.NewLoanService(st.loans, st.catalog, st.accounts, c, log.With().Str("component", "loans").Logger())
	a.Catalog = service.NewCatalogService(st.catalog, st.loans, c, log.With().Str("component", "catalog").Logger())

	a.Echo = api.NewRouter(api.Dependencies{
		Identity:      a.Identity,
		Accounts:      a.Accounts,
		Loans:         a.Loans,
		Catalog:       a.Catalog,
		Cache:         c,
		Health:        health,
		AuthRateLimit: cfg.AuthRateLimit,
		Registry:      prometheus.NewRegistry(),
		Log:           log,
	})
	return a, nil
}

// Close releases backends in reverse order of opening.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	switch cfg.Store.Driver {
	case config.StoreMongo:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		if err := mongo.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("mongo store ready")
		return &stores{
			accounts: mongo.NewAccountRepository(db),
			catalog:  mongo.NewCatalogRepository(db),
			loans:    mongo.NewLoanRepository(db),
			ping:     func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close:    client.Disconnect,
		}, nil

	case config.StoreSQLite:
		db, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.Store.SQLitePath})
		if err != nil {
			return nil, err
		}
		if err := sqlite.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info().Str("path", cfg.Store.SQLitePath).Msg("sqlite store ready")
		return &stores{
			accounts: sqlite.NewAccountRepository(db),
			catalog:  sqlite.NewCatalogRepository(db),
			loans:    sqlite.NewLoanRepository(db),
			ping:     db.PingContext,
			close:    func(context.Context) error { return db.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func (a *App) openCache(ctx context.Context, cfg *config.Config, log zerolog.Logger, health map[string]handler.Pinger) (ports.Cache, error) {
	if cfg.Cache.Backend != config.CacheRedis {
		return cache.New(cache.RegionConfig{
			Capacity:  cfg.Cache.Capacity,
			AccessTTL: cfg.Cache.AccessTTL,
			WriteTTL:  cfg.Cache.WriteTTL,
		}), nil
	}

	client, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })
	health["redis"] = handler.PingFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() })

	return redis.NewCache(client, log.With().Str("component", "cache").Logger(), redis.RegionConfig{
		Capacity:  cfg.Cache.Capacity,
		AccessTTL: cfg.Cache.AccessTTL,
		WriteTTL:  cfg.Cache.WriteTTL,
	}, nil), nil
}
