package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
	"github.com/MrxHuang/alexandriaBackend/internal/core/ports"
)

// LoanService is the loan ledger. Borrow and return rules are enforced
// atomically by the repository; the service resolves references and keeps
// the read caches coherent after every successful write.
type LoanService struct {
	loans    ports.LoanRepository
	catalog  ports.CatalogRepository
	accounts ports.AccountRepository
	cache    ports.Cache
	log      zerolog.Logger
	now      func() time.Time
}

func NewLoanService(
	loans ports.LoanRepository,
	catalog ports.CatalogRepository,
	accounts ports.AccountRepository,
	cache ports.Cache,
	log zerolog.Logger,
) *LoanService {
	return &LoanService{
		loans:    loans,
		catalog:  catalog,
		accounts: accounts,
		cache:    cache,
		log:      log,
		now:      time.Now,
	}
}

var _ ports.LoanService = (*LoanService)(nil)

func (s *LoanService) Borrow(ctx context.Context, in ports.BorrowInput) (*domain.Loan, error) {
	if _, err := s.catalog.FindItemByID(ctx, in.ItemID); err != nil {
		logFailure(s.log, err, "failed to resolve item")
		return nil, err
	}
	if _, err := s.accounts.FindByID(ctx, in.AccountID); err != nil {
		logFailure(s.log, err, "failed to resolve borrower")
		return nil, err
	}

	loan, err := s.loans.Open(ctx, &domain.Loan{
		ItemID:    in.ItemID,
		AccountID: in.AccountID,
		LoanDate:  domain.Day(s.now()),
	}, domain.MaxOpenLoansPerAccount)
	if err != nil {
		logFailure(s.log, err, "failed to open loan")
		return nil, err
	}

	s.invalidate(ctx, loan.ItemID)
	s.log.Info().Int64("loan_id", loan.ID).Int64("item_id", loan.ItemID).Int64("account_id", loan.AccountID).Msg("loan opened")
	return loan, nil
}

func (s *LoanService) Get(ctx context.Context, id int64) (*domain.Loan, error) {
	loan, err := readThrough(ctx, s.cache, s.log, ports.RegionLoans, idKey(id), func() (*domain.Loan, error) {
		return s.loans.FindByID(ctx, id)
	})
	if err != nil {
		logFailure(s.log, err, "failed to load loan")
		return nil, err
	}
	return loan, nil
}

func (s *LoanService) List(ctx context.Context, q ports.LoanQuery) (*ports.Page[*domain.Loan], error) {
	page, limit := ports.NormalizePage(q.Page, q.Limit)
	items, total, err := s.loans.List(ctx, ports.LoanFilter{
		AccountID: q.AccountID,
		ItemID:    q.ItemID,
		Returned:  q.Returned,
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		logFailure(s.log, err, "failed to list loans")
		return nil, err
	}
	return ports.NewPage(items, total, page, limit), nil
}

// Return closes an open loan. Returning twice fails with
// domain.ErrAlreadyReturned.
func (s *LoanService) Return(ctx context.Context, id int64) (*domain.Loan, error) {
	loan, err := s.loans.MarkReturned(ctx, id, s.now())
	if err != nil {
		logFailure(s.log, err, "failed to return loan")
		return nil, err
	}

	s.invalidate(ctx, loan.ItemID)
	s.log.Info().Int64("loan_id", loan.ID).Int64("item_id", loan.ItemID).Msg("loan returned")
	return loan, nil
}

func (s *LoanService) Delete(ctx context.Context, id int64) error {
	loan, err := s.loans.Delete(ctx, id)
	if err != nil {
		logFailure(s.log, err, "failed to delete loan")
		return err
	}

	s.invalidate(ctx, loan.ItemID)
	s.log.Info().Int64("loan_id", loan.ID).Msg("loan deleted")
	return nil
}

// invalidate drops every cached view a loan write can make stale: all loans,
// the item's own entry and every per-author item list.
func (s *LoanService) invalidate(ctx context.Context, itemID int64) {
	s.cache.Invalidate(ctx, ports.RegionLoans, ports.InvalidateAll)
	s.cache.Invalidate(ctx, ports.RegionItems, idKey(itemID))
	s.cache.Invalidate(ctx, ports.RegionItemsByAuthor, ports.InvalidateAll)
}
