package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
)

// Authenticator resolves a bearer token to the caller it was issued for.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Principal, error)
}

// Auth validates the bearer token and attaches the principal to the request
// context. The role and handle are also set on the echo context for RBAC and
// request logging.
func Auth(authn Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			req := c.Request()
			p, err := authn.Authenticate(req.Context(), strings.TrimSpace(parts[1]))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.SetRequest(req.WithContext(domain.WithPrincipal(req.Context(), p)))
			c.Set("handle", p.Handle)
			c.Set("role", p.Role)

			return next(c)
		}
	}
}
