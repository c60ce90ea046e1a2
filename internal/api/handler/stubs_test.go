package handler

import (
	"context"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
	"github.com/MrxHuang/alexandriaBackend/internal/core/ports"
)

type stubIdentity struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*domain.Account, error)
	loginFn    func(ctx context.Context, handle, password string) (*ports.AuthResult, error)
	externalFn func(ctx context.Context, in ports.ExternalLoginInput) (*ports.AuthResult, error)
}

func (s *stubIdentity) Register(ctx context.Context, in ports.RegisterInput) (*domain.Account, error) {
	return s.registerFn(ctx, in)
}

func (s *stubIdentity) Login(ctx context.Context, handle, password string) (*ports.AuthResult, error) {
	return s.loginFn(ctx, handle, password)
}

func (s *stubIdentity) LoginExternal(ctx context.Context, in ports.ExternalLoginInput) (*ports.AuthResult, error) {
	return s.externalFn(ctx, in)
}

func (s *stubIdentity) Authenticate(context.Context, string) (domain.Principal, error) {
	return domain.Principal{}, domain.ErrInvalidCredentials
}

// stubAccounts only resolves handles; the other methods are not used by
// the loan handler.
type stubAccounts struct {
	ports.AccountService
	byHandle map[string]*domain.Account
}

func (s *stubAccounts) FindByHandle(_ context.Context, handle string) (*domain.Account, error) {
	a, ok := s.byHandle[handle]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return a, nil
}

type stubLoans struct {
	loans    map[int64]*domain.Loan
	borrowed []ports.BorrowInput
	returned []int64
	listed   []ports.LoanQuery
}

func (s *stubLoans) Borrow(_ context.Context, in ports.BorrowInput) (*domain.Loan, error) {
	s.borrowed = append(s.borrowed, in)
	return &domain.Loan{ID: 99, ItemID: in.ItemID, AccountID: in.AccountID}, nil
}

func (s *stubLoans) Get(_ context.Context, id int64) (*domain.Loan, error) {
	l, ok := s.loans[id]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	return l, nil
}

func (s *stubLoans) List(_ context.Context, q ports.LoanQuery) (*ports.Page[*domain.Loan], error) {
	s.listed = append(s.listed, q)
	return ports.NewPage[*domain.Loan](nil, 0, 1, 20), nil
}

func (s *stubLoans) Return(_ context.Context, id int64) (*domain.Loan, error) {
	s.returned = append(s.returned, id)
	l := *s.loans[id]
	if err := l.MarkReturned(l.LoanDate); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *stubLoans) Delete(context.Context, int64) error { return nil }

// newContext builds an echo context with the validator installed and, when
// p is non-nil, an authenticated principal.
func newContext(method, target, body string, p *domain.Principal) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if p != nil {
		req = req.WithContext(domain.WithPrincipal(req.Context(), *p))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}
