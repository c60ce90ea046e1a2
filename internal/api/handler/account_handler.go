package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
	"github.com/MrxHuang/alexandriaBackend/internal/core/ports"
)

// AccountHandler exposes the account directory. Everything except Me is
// mounted behind the admin role.
type AccountHandler struct {
	accounts ports.AccountService
}

func NewAccountHandler(accounts ports.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type createAccountRequest struct {
	Name     string `json:"name"     validate:"required"`
	Handle   string `json:"handle"   validate:"required,min=3,max=50"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

type updateAccountRequest struct {
	Name     *string `json:"name"`
	Handle   *string `json:"handle"   validate:"omitnil,min=3,max=50"`
	Email    *string `json:"email"    validate:"omitnil,email"`
	Password *string `json:"password" validate:"omitnil,min=8"`
	Role     *string `json:"role"`
	Status   *string `json:"status"`
}

// Me returns the caller's own account.
//
// @Summary      Current account
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Account
// @Failure      401  {object}  map[string]string
// @Router       /v1/accounts/me [get]
func (h *AccountHandler) Me(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	acc, err := h.accounts.FindByHandle(c.Request().Context(), p.Handle)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, acc)
}

// List handles GET /v1/accounts.
//
// @Summary      List accounts
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string  false  "Matches name, handle or email"
// @Param        role    query     string  false  "ADMIN or READER"
// @Param        status  query     string  false  "ACTIVE or INACTIVE"
// @Param        page    query     int     false  "1-based page"
// @Param        limit   query     int     false  "Page size"
// @Success      200     {object}  ports.Page[domain.Account]
// @Router       /v1/accounts [get]
func (h *AccountHandler) List(c echo.Context) error {
	q := ports.AccountQuery{
		Search: c.QueryParam("search"),
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
	}
	if raw := c.QueryParam("role"); raw != "" {
		role, ok := domain.ParseRole(raw)
		if !ok {
			return fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, raw)
		}
		q.Role = role
	}
	if raw := c.QueryParam("status"); raw != "" {
		status, ok := domain.ParseStatus(raw)
		if !ok {
			return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, raw)
		}
		q.Status = status
	}

	page, err := h.accounts.List(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Get handles GET /v1/accounts/:id.
//
// @Summary      Get an account
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Account ID"
// @Success      200  {object}  domain.Account
// @Failure      404  {object}  map[string]string
// @Router       /v1/accounts/{id} [get]
func (h *AccountHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	acc, err := h.accounts.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, acc)
}

// Create handles POST /v1/accounts. Unlike self-registration an administrator
// may choose the role.
//
// @Summary      Create an account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createAccountRequest  true  "Account"
// @Success      201   {object}  domain.Account
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /v1/accounts [post]
func (h *AccountHandler) Create(c echo.Context) error {
	var req createAccountRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	in := ports.CreateAccountInput{
		Name:     req.Name,
		Handle:   req.Handle,
		Email:    req.Email,
		Password: req.Password,
	}
	if req.Role != "" {
		role, ok := domain.ParseRole(req.Role)
		if !ok {
			return fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, req.Role)
		}
		in.Role = role
	}
	if req.Status != "" {
		status, ok := domain.ParseStatus(req.Status)
		if !ok {
			return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, req.Status)
		}
		in.Status = status
	}

	acc, err := h.accounts.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, acc)
}

// Update handles PATCH /v1/accounts/:id. Omitted fields are left untouched.
//
// @Summary      Update an account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                   true  "Account ID"
// @Param        body  body      updateAccountRequest  true  "Fields to change"
// @Success      200   {object}  domain.Account
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /v1/accounts/{id} [patch]
func (h *AccountHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateAccountRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	patch := ports.AccountPatch{
		Name:     req.Name,
		Handle:   req.Handle,
		Email:    req.Email,
		Password: req.Password,
	}
	if req.Role != nil {
		r := domain.Role(*req.Role)
		patch.Role = &r
	}
	if req.Status != nil {
		s := domain.Status(*req.Status)
		patch.Status = &s
	}

	acc, err := h.accounts.Update(c.Request().Context(), id, patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, acc)
}
