package ports

import (
	"context"
	"time"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
)

// LoanFilter narrows a loan listing. Nil pointers mean "any".
type LoanFilter struct {
	AccountID *int64
	ItemID    *int64
	Returned  *bool
	Page      int // 1-based
	Limit     int
}

// LoanRepository persists loans and owns the atomicity of the borrow rules.
type LoanRepository interface {
	// Open inserts loan in the open state. In one atomic step it rejects the
	// insert with domain.ErrItemUnavailable if the item already has an open
	// loan, then with domain.ErrLoanLimitExceeded if the borrower already
	// holds maxOpen open loans.
	Open(ctx context.Context, loan *domain.Loan, maxOpen int) (*domain.Loan, error)
	FindByID(ctx context.Context, id int64) (*domain.Loan, error)
	// MarkReturned closes an open loan. It fails with domain.ErrLoanNotFound
	// or domain.ErrAlreadyReturned, also under concurrent returns.
	MarkReturned(ctx context.Context, id int64, on time.Time) (*domain.Loan, error)
	// Delete removes a loan and returns what was removed.
	Delete(ctx context.Context, id int64) (*domain.Loan, error)
	List(ctx context.Context, filter LoanFilter) ([]*domain.Loan, int64, error)
	HasOpenLoan(ctx context.Context, itemID int64) (bool, error)
	CountOpenByAccount(ctx context.Context, accountID int64) (int, error)
}
