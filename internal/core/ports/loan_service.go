package ports

import (
	"context"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
)

type BorrowInput struct {
	ItemID    int64
	AccountID int64
}

type LoanQuery struct {
	AccountID *int64
	ItemID    *int64
	Returned  *bool
	Page      int
	Limit     int
}

// LoanService is the loan ledger.
type LoanService interface {
	Borrow(ctx context.Context, input BorrowInput) (*domain.Loan, error)
	Get(ctx context.Context, id int64) (*domain.Loan, error)
	List(ctx context.Context, query LoanQuery) (*Page[*domain.Loan], error)
	Return(ctx context.Context, id int64) (*domain.Loan, error)
	Delete(ctx context.Context, id int64) error
}
