package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/MrxHuang/alexandriaBackend/internal/api/metrics"
	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
	"github.com/MrxHuang/alexandriaBackend/internal/core/ports"
)

// LoanHandler exposes the loan ledger. Readers act on their own loans only;
// administrators may act for any account.
type LoanHandler struct {
	loans    ports.LoanService
	accounts ports.AccountService
}

func NewLoanHandler(loans ports.LoanService, accounts ports.AccountService) *LoanHandler {
	return &LoanHandler{loans: loans, accounts: accounts}
}

type borrowRequest struct {
	ItemID    int64 `json:"item_id"    validate:"required,gt=0"`
	AccountID int64 `json:"account_id" validate:"gte=0"`
}

// Borrow handles POST /v1/loans.
//
// @Summary      Borrow an item
// @Tags         loans
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      borrowRequest  true  "Item to borrow; account_id is honoured for administrators only"
// @Success      201   {object}  domain.Loan
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /v1/loans [post]
func (h *LoanHandler) Borrow(c echo.Context) error {
	var req borrowRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	accountID, err := h.borrower(ctx, c, req.AccountID)
	if err != nil {
		return err
	}

	loan, err := h.loans.Borrow(ctx, ports.BorrowInput{ItemID: req.ItemID, AccountID: accountID})
	metrics.LoanOperationsTotal.WithLabelValues("borrow", loanResult(err)).Inc()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, loan)
}

// borrower picks the account a loan is opened for.
func (h *LoanHandler) borrower(ctx context.Context, c echo.Context, requested int64) (int64, error) {
	p, err := principal(c)
	if err != nil {
		return 0, err
	}
	self, err := h.accounts.FindByHandle(ctx, p.Handle)
	if err != nil {
		return 0, err
	}
	if requested == 0 || requested == self.ID {
		return self.ID, nil
	}
	if !p.IsAdmin() {
		return 0, domain.ErrForbidden
	}
	return requested, nil
}

// Get handles GET /v1/loans/:id.
//
// @Summary      Get a loan
// @Tags         loans
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Loan ID"
// @Success      200  {object}  domain.Loan
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /v1/loans/{id} [get]
func (h *LoanHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	loan, err := h.loans.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := h.authorize(ctx, c, loan.AccountID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loan)
}

// List handles GET /v1/loans. Readers always see their own loans.
//
// @Summary      List loans
// @Tags         loans
// @Produce      json
// @Security     BearerAuth
// @Param        account_id  query     int   false  "Borrower"
// @Param        item_id     query     int   false  "Item"
// @Param        returned    query     bool  false  "Returned state"
// @Param        page        query     int   false  "1-based page"
// @Param        limit       query     int   false  "Page size"
// @Success      200         {object}  ports.Page[domain.Loan]
// @Router       /v1/loans [get]
func (h *LoanHandler) List(c echo.Context) error {
	q := ports.LoanQuery{Page: queryInt(c, "page"), Limit: queryInt(c, "limit")}
	var err error
	if q.AccountID, err = queryInt64(c, "account_id"); err != nil {
		return err
	}
	if q.ItemID, err = queryInt64(c, "item_id"); err != nil {
		return err
	}
	if q.Returned, err = queryBool(c, "returned"); err != nil {
		return err
	}

	ctx := c.Request().Context()
	p, err := principal(c)
	if err != nil {
		return err
	}
	if !p.IsAdmin() {
		self, err := h.accounts.FindByHandle(ctx, p.Handle)
		if err != nil {
			return err
		}
		if q.AccountID != nil && *q.AccountID != self.ID {
			return domain.ErrForbidden
		}
		q.AccountID = &self.ID
	}

	page, err := h.loans.List(ctx, q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Return handles POST /v1/loans/:id/return.
//
// @Summary      Return a loan
// @Tags         loans
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Loan ID"
// @Success      200  {object}  domain.Loan
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /v1/loans/{id}/return [post]
func (h *LoanHandler) Return(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	current, err := h.loans.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := h.authorize(ctx, c, current.AccountID); err != nil {
		return err
	}

	loan, err := h.loans.Return(ctx, id)
	metrics.LoanOperationsTotal.WithLabelValues("return", loanResult(err)).Inc()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loan)
}

// Delete handles DELETE /v1/loans/:id (administrators only).
//
// @Summary      Delete a loan
// @Tags         loans
// @Security     BearerAuth
// @Param        id   path  int  true  "Loan ID"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /v1/loans/{id} [delete]
func (h *LoanHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	err = h.loans.Delete(c.Request().Context(), id)
	metrics.LoanOperationsTotal.WithLabelValues("delete", loanResult(err)).Inc()
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// authorize lets administrators through and readers only to their own loans.
func (h *LoanHandler) authorize(ctx context.Context, c echo.Context, ownerID int64) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if p.IsAdmin() {
		return nil
	}
	self, err := h.accounts.FindByHandle(ctx, p.Handle)
	if err != nil {
		return err
	}
	if self.ID != ownerID {
		return domain.ErrForbidden
	}
	return nil
}

func loanResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrItemUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrLoanLimitExceeded):
		return "limit_exceeded"
	case errors.Is(err, domain.ErrAlreadyReturned):
		return "already_returned"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
