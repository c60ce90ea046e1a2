package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/MrxHuang/alexandriaBackend/internal/api/handler"
	"github.com/MrxHuang/alexandriaBackend/internal/api/metrics"
	"github.com/MrxHuang/alexandriaBackend/internal/api/middleware"
	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
	"github.com/MrxHuang/alexandriaBackend/internal/core/ports"
)

// Dependencies are the services the HTTP surface is built on.
type Dependencies struct {
	Identity ports.IdentityService
	Accounts ports.AccountService
	Loans    ports.LoanService
	Catalog  ports.CatalogService
	Cache    ports.Cache

	// Health maps dependency names to readiness checks.
	Health map[string]handler.Pinger

	// AuthRateLimit is requests per second per IP on /auth routes.
	AuthRateLimit float64

	// Registry receives HTTP and cache metrics. A fresh one is used when nil.
	Registry *prometheus.Registry

	Log zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	reg := d.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if d.Cache != nil {
		reg.MustRegister(metrics.NewCacheCollector(d.Cache,
			ports.RegionLoans, ports.RegionItems, ports.RegionItemsByAuthor, ports.RegionAuthors))
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "alexandria",
		Registerer: reg,
	}))

	// --- Health probes and metrics (no auth required) ---
	health := handler.NewHealthHandler(d.Health)
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: prometheus.Gatherers{reg, prometheus.DefaultGatherer},
	}))

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(d.Identity)
	auth := e.Group("/auth", middleware.RateLimit(d.AuthRateLimit))
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/external", authHandler.External)

	// --- Authenticated API ---
	v1 := e.Group("/v1", middleware.Auth(d.Identity))
	admin := middleware.RBAC(domain.RoleAdmin)

	accounts := handler.NewAccountHandler(d.Accounts)
	v1.GET("/accounts/me", accounts.Me)
	v1.GET("/accounts", accounts.List, admin)
	v1.POST("/accounts", accounts.Create, admin)
	v1.GET("/accounts/:id", accounts.Get, admin)
	v1.PATCH("/accounts/:id", accounts.Update, admin)

	loans := handler.NewLoanHandler(d.Loans, d.Accounts)
	v1.POST("/loans", loans.Borrow)
	v1.GET("/loans", loans.List)
	v1.GET("/loans/:id", loans.Get)
	v1.POST("/loans/:id/return", loans.Return)
	v1.DELETE("/loans/:id", loans.Delete, admin)

	catalog := handler.NewCatalogHandler(d.Catalog)
	v1.POST("/authors", catalog.CreateAuthor, admin)
	v1.GET("/authors/:id", catalog.GetAuthor)
	v1.GET("/authors/:id/items", catalog.ListAuthorItems)
	v1.POST("/items", catalog.CreateItem, admin)
	v1.GET("/items/:id", catalog.GetItem)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			if h, ok := c.Get("handle").(string); ok {
				ev = ev.Str("handle", h)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
