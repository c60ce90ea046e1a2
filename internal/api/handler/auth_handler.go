package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/MrxHuang/alexandriaBackend/internal/api/metrics"
	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
	"github.com/MrxHuang/alexandriaBackend/internal/core/ports"
)

type AuthHandler struct {
	identity ports.IdentityService
}

func NewAuthHandler(identity ports.IdentityService) *AuthHandler {
	return &AuthHandler{identity: identity}
}

type registerRequest struct {
	Name     string `json:"name"     validate:"required"`
	Handle   string `json:"handle"   validate:"required,min=3,max=50"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Handle   string `json:"handle"   validate:"required"`
	Password string `json:"password" validate:"required"`
}

type externalLoginRequest struct {
	Credential  string `json:"credential" validate:"required"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

type authResponse struct {
	Token   string          `json:"token,omitempty"`
	Account *domain.Account `json:"account,omitempty"`
	Created bool            `json:"created,omitempty"`
}

// Register creates a reader account.
//
// @Summary      Register a new reader
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Account details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	acc, err := h.identity.Register(c.Request().Context(), ports.RegisterInput{
		Name:     req.Name,
		Handle:   req.Handle,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, authResponse{Account: acc, Created: true})
}

// Login authenticates with handle and password and returns a session token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  authResponse
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.identity.Login(c.Request().Context(), req.Handle, req.Password)
	metrics.LoginsTotal.WithLabelValues("password", loginResult(res, err)).Inc()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResponse{Token: res.Token, Account: res.Account})
}

// External signs in with a credential from the external identity provider,
// creating the account on first use.
//
// @Summary      External login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      externalLoginRequest  true  "Provider credential"
// @Success      200   {object}  authResponse
// @Success      201   {object}  authResponse
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /auth/external [post]
func (h *AuthHandler) External(c echo.Context) error {
	var req externalLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.identity.LoginExternal(c.Request().Context(), ports.ExternalLoginInput{
		Credential:    req.Credential,
		DisplayName:   req.DisplayName,
		RequestedRole: req.Role,
	})
	metrics.LoginsTotal.WithLabelValues("external", loginResult(res, err)).Inc()
	if err != nil {
		return err
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, authResponse{Token: res.Token, Account: res.Account, Created: res.Created})
}

func loginResult(res *ports.AuthResult, err error) string {
	switch {
	case err == nil && res.Created:
		return "created"
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrProviderUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrAccountInactive),
		errors.Is(err, domain.ErrRoleChangeForbidden):
		return "rejected"
	default:
		return "error"
	}
}
