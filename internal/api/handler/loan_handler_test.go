package handler

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
)

var (
	reader = &domain.Principal{Handle: "rita", Role: domain.RoleReader}
	admin  = &domain.Principal{Handle: "root", Role: domain.RoleAdmin}
)

func newLoanFixture() (*LoanHandler, *stubLoans) {
	accounts := &stubAccounts{byHandle: map[string]*domain.Account{
		"rita": {ID: 1, Handle: "rita", Role: domain.RoleReader},
		"root": {ID: 2, Handle: "root", Role: domain.RoleAdmin},
	}}
	loans := &stubLoans{loans: map[int64]*domain.Loan{
		10: {ID: 10, ItemID: 5, AccountID: 1, LoanDate: domain.Day(time.Now())},
		11: {ID: 11, ItemID: 6, AccountID: 3, LoanDate: domain.Day(time.Now())},
	}}
	return NewLoanHandler(loans, accounts), loans
}

func TestLoanHandler_Borrow_ForSelf(t *testing.T) {
	h, loans := newLoanFixture()

	c, rec := newContext(http.MethodPost, "/v1/loans", `{"item_id":5}`, reader)
	if err := h.Borrow(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if len(loans.borrowed) != 1 || loans.borrowed[0].AccountID != 1 {
		t.Fatalf("expected borrow for the caller's account, got %+v", loans.borrowed)
	}
}

func TestLoanHandler_Borrow_ForOthers(t *testing.T) {
	h, loans := newLoanFixture()

	c, _ := newContext(http.MethodPost, "/v1/loans", `{"item_id":5,"account_id":3}`, reader)
	if err := h.Borrow(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for a reader, got %v", err)
	}

	c, _ = newContext(http.MethodPost, "/v1/loans", `{"item_id":5,"account_id":3}`, admin)
	if err := h.Borrow(c); err != nil {
		t.Fatalf("admin borrow failed: %v", err)
	}
	if loans.borrowed[len(loans.borrowed)-1].AccountID != 3 {
		t.Fatalf("admin should borrow for the requested account")
	}
}

func TestLoanHandler_Borrow_Unauthenticated(t *testing.T) {
	h, _ := newLoanFixture()
	c, _ := newContext(http.MethodPost, "/v1/loans", `{"item_id":5}`, nil)
	if err := h.Borrow(c); err == nil {
		t.Fatalf("expected an error without a principal")
	}
}

func TestLoanHandler_Get_Ownership(t *testing.T) {
	h, _ := newLoanFixture()

	c, rec := newContext(http.MethodGet, "/v1/loans/10", "", reader)
	c.SetParamNames("id")
	c.SetParamValues("10")
	if err := h.Get(c); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("own loan: err=%v code=%d", err, rec.Code)
	}

	c, _ = newContext(http.MethodGet, "/v1/loans/11", "", reader)
	c.SetParamNames("id")
	c.SetParamValues("11")
	if err := h.Get(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden on someone else's loan, got %v", err)
	}

	c, _ = newContext(http.MethodGet, "/v1/loans/11", "", admin)
	c.SetParamNames("id")
	c.SetParamValues("11")
	if err := h.Get(c); err != nil {
		t.Fatalf("admin get failed: %v", err)
	}
}

func TestLoanHandler_Return(t *testing.T) {
	h, loans := newLoanFixture()

	c, _ := newContext(http.MethodPost, "/v1/loans/11/return", "", reader)
	c.SetParamNames("id")
	c.SetParamValues("11")
	if err := h.Return(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if len(loans.returned) != 0 {
		t.Fatalf("ledger must not be touched on a forbidden return")
	}

	c, rec := newContext(http.MethodPost, "/v1/loans/10/return", "", reader)
	c.SetParamNames("id")
	c.SetParamValues("10")
	if err := h.Return(c); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("own return: err=%v code=%d", err, rec.Code)
	}
}

func TestLoanHandler_List_ScopesReaders(t *testing.T) {
	h, loans := newLoanFixture()

	c, _ := newContext(http.MethodGet, "/v1/loans?returned=false", "", reader)
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	q := loans.listed[0]
	if q.AccountID == nil || *q.AccountID != 1 {
		t.Fatalf("reader listing must be scoped to own account, got %+v", q.AccountID)
	}
	if q.Returned == nil || *q.Returned {
		t.Fatalf("returned filter not parsed")
	}

	c, _ = newContext(http.MethodGet, "/v1/loans?account_id=3", "", reader)
	if err := h.List(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	c, _ = newContext(http.MethodGet, "/v1/loans?item_id=6", "", admin)
	if err := h.List(c); err != nil {
		t.Fatalf("admin list failed: %v", err)
	}
	q = loans.listed[len(loans.listed)-1]
	if q.AccountID != nil || q.ItemID == nil || *q.ItemID != 6 {
		t.Fatalf("unexpected admin query: %+v", q)
	}

	c, _ = newContext(http.MethodGet, "/v1/loans?returned=maybe", "", admin)
	if err := h.List(c); err == nil {
		t.Fatalf("expected a bad request for an invalid filter")
	}
}

func TestLoanResult(t *testing.T) {
	cases := map[error]string{
		nil:                         "ok",
		domain.ErrItemUnavailable:   "unavailable",
		domain.ErrLoanLimitExceeded: "limit_exceeded",
		domain.ErrAlreadyReturned:   "already_returned",
		domain.ErrLoanNotFound:      "not_found",
		errors.New("db down"):       "error",
	}
	for err, want := range cases {
		if got := loanResult(err); got != want {
			t.Errorf("loanResult(%v) = %q, want %q", err, got, want)
		}
	}
}
