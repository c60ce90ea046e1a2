package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
	"github.com/MrxHuang/alexandriaBackend/internal/core/ports"
)

const loansTable = "loans"

var loanColumns = []any{"id", "item_id", "account_id", "loan_date", "return_date", "returned"}

// LoanRepository keeps the borrow rules atomic: every write runs in its own
// BEGIN IMMEDIATE transaction, and the partial unique index on open loans
// per item rejects a second open loan even if the checks were bypassed.
type LoanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

var _ ports.LoanRepository = (*LoanRepository)(nil)

type loanRow struct {
	ID         int64        `db:"id"`
	ItemID     int64        `db:"item_id"`
	AccountID  int64        `db:"account_id"`
	LoanDate   time.Time    `db:"loan_date"`
	ReturnDate sql.NullTime `db:"return_date"`
	Returned   bool         `db:"returned"`
}

func (r loanRow) toDomain() *domain.Loan {
	l := &domain.Loan{
		ID:        r.ID,
		ItemID:    r.ItemID,
		AccountID: r.AccountID,
		LoanDate:  r.LoanDate.UTC(),
		Returned:  r.Returned,
	}
	if r.ReturnDate.Valid {
		d := r.ReturnDate.Time.UTC()
		l.ReturnDate = &d
	}
	return l
}

func (r *LoanRepository) Open(ctx context.Context, loan *domain.Loan, maxOpen int) (*domain.Loan, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin open loan: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	onLoan, err := countOpen(ctx, tx, goqu.Ex{"item_id": loan.ItemID})
	if err != nil {
		return nil, err
	}
	if onLoan > 0 {
		return nil, domain.ErrItemUnavailable
	}

	held, err := countOpen(ctx, tx, goqu.Ex{"account_id": loan.AccountID})
	if err != nil {
		return nil, err
	}
	if held >= maxOpen {
		return nil, domain.ErrLoanLimitExceeded
	}

	q, args, err := dialect.Insert(loansTable).Prepared(true).Rows(goqu.Record{
		"item_id":     loan.ItemID,
		"account_id":  loan.AccountID,
		"loan_date":   domain.Day(loan.LoanDate),
		"return_date": nil,
		"returned":    0,
	}).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build insert loan: %w", err)
	}
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		if derr := uniqueViolation(err); derr != nil {
			return nil, derr
		}
		return nil, fmt.Errorf("insert loan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert loan id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit open loan: %w", err)
	}

	return &domain.Loan{
		ID:        id,
		ItemID:    loan.ItemID,
		AccountID: loan.AccountID,
		LoanDate:  domain.Day(loan.LoanDate),
	}, nil
}

func (r *LoanRepository) FindByID(ctx context.Context, id int64) (*domain.Loan, error) {
	return findLoan(ctx, r.db, id)
}

func (r *LoanRepository) MarkReturned(ctx context.Context, id int64, on time.Time) (*domain.Loan, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin return loan: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	loan, err := findLoan(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := loan.MarkReturned(on); err != nil {
		return nil, err
	}

	q, args, err := dialect.Update(loansTable).Prepared(true).Set(goqu.Record{
		"returned":    1,
		"return_date": *loan.ReturnDate,
	}).Where(goqu.Ex{"id": id, "returned": 0}).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build return loan: %w", err)
	}
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("return loan: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("return loan rows: %w", err)
	} else if n == 0 {
		return nil, domain.ErrAlreadyReturned
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit return loan: %w", err)
	}
	return loan, nil
}

func (r *LoanRepository) Delete(ctx context.Context, id int64) (*domain.Loan, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete loan: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	loan, err := findLoan(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	q, args, err := dialect.Delete(loansTable).Prepared(true).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build delete loan: %w", err)
	}
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return nil, fmt.Errorf("delete loan: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete loan: %w", err)
	}
	return loan, nil
}

func (r *LoanRepository) List(ctx context.Context, f ports.LoanFilter) ([]*domain.Loan, int64, error) {
	where := goqu.Ex{}
	if f.AccountID != nil {
		where["account_id"] = *f.AccountID
	}
	if f.ItemID != nil {
		where["item_id"] = *f.ItemID
	}
	if f.Returned != nil {
		where["returned"] = boolInt(*f.Returned)
	}

	cq, cargs, err := dialect.From(loansTable).Prepared(true).Select(goqu.COUNT("*")).Where(where).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build count loans: %w", err)
	}
	var total int64
	if err := r.db.GetContext(ctx, &total, cq, cargs...); err != nil {
		return nil, 0, fmt.Errorf("count loans: %w", err)
	}

	page, limit := ports.NormalizePage(f.Page, f.Limit)
	q, args, err := dialect.From(loansTable).Prepared(true).Select(loanColumns...).
		Where(where).
		Order(goqu.I("id").Asc()).
		Limit(uint(limit)).
		Offset(uint(ports.Offset(page, limit))).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build list loans: %w", err)
	}
	var rows []loanRow
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, 0, fmt.Errorf("list loans: %w", err)
	}
	out := make([]*domain.Loan, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, total, nil
}

func (r *LoanRepository) HasOpenLoan(ctx context.Context, itemID int64) (bool, error) {
	n, err := countOpen(ctx, r.db, goqu.Ex{"item_id": itemID})
	return n > 0, err
}

func (r *LoanRepository) CountOpenByAccount(ctx context.Context, accountID int64) (int, error) {
	return countOpen(ctx, r.db, goqu.Ex{"account_id": accountID})
}

func countOpen(ctx context.Context, q sqlx.QueryerContext, where goqu.Ex) (int, error) {
	where["returned"] = 0
	query, args, err := dialect.From(loansTable).Prepared(true).Select(goqu.COUNT("*")).Where(where).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count open loans: %w", err)
	}
	var n int
	if err := sqlx.GetContext(ctx, q, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count open loans: %w", err)
	}
	return n, nil
}

func findLoan(ctx context.Context, q sqlx.QueryerContext, id int64) (*domain.Loan, error) {
	query, args, err := dialect.From(loansTable).Prepared(true).Select(loanColumns...).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build find loan: %w", err)
	}
	var row loanRow
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, fmt.Errorf("find loan: %w", err)
	}
	return row.toDomain(), nil
}
