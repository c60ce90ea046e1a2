package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
	"github.com/MrxHuang/alexandriaBackend/internal/core/ports"
)

const accountsTable = "accounts"

var accountColumns = []any{"id", "name", "handle", "email", "password_hash", "role", "status", "bootstrap", "created_at", "updated_at"}

type AccountRepository struct {
	db *sqlx.DB
}

func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

var _ ports.AccountRepository = (*AccountRepository)(nil)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsFold matches col against term literally. SQLite LIKE already
// ignores ASCII case.
func containsFold(col, term string) goqu.Expression {
	return goqu.L(`? LIKE ? ESCAPE '\'`, goqu.C(col), "%"+likeEscaper.Replace(term)+"%")
}

type accountRow struct {
	ID           int64     `db:"id"`
	Name         string    `db:"name"`
	Handle       string    `db:"handle"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	Status       string    `db:"status"`
	Bootstrap    bool      `db:"bootstrap"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r accountRow) toDomain() *domain.Account {
	return &domain.Account{
		ID:           r.ID,
		Name:         r.Name,
		Handle:       r.Handle,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         domain.Role(r.Role),
		Status:       domain.Status(r.Status),
		Bootstrap:    r.Bootstrap,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) (*domain.Account, error) {
	q, args, err := dialect.Insert(accountsTable).Prepared(true).Rows(goqu.Record{
		"name":          a.Name,
		"handle":        a.Handle,
		"email":         a.Email,
		"password_hash": a.PasswordHash,
		"role":          string(a.Role),
		"status":        string(a.Status),
		"bootstrap":     boolInt(a.Bootstrap),
		"created_at":    a.CreatedAt,
		"updated_at":    a.UpdatedAt,
	}).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build insert account: %w", err)
	}

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		if derr := uniqueViolation(err); derr != nil {
			return nil, derr
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert account id: %w", err)
	}

	created := *a
	created.ID = id
	return &created, nil
}

func (r *AccountRepository) findOne(ctx context.Context, where goqu.Ex) (*domain.Account, error) {
	q, args, err := dialect.From(accountsTable).Prepared(true).Select(accountColumns...).Where(where).Limit(1).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build find account: %w", err)
	}

	var row accountRow
	if err := r.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return row.toDomain(), nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	return r.findOne(ctx, goqu.Ex{"id": id})
}

func (r *AccountRepository) FindByHandle(ctx context.Context, handle string) (*domain.Account, error) {
	return r.findOne(ctx, goqu.Ex{"handle": handle})
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, goqu.Ex{"email": email})
}

func (r *AccountRepository) count(ctx context.Context, where ...goqu.Expression) (int64, error) {
	ds := dialect.From(accountsTable).Prepared(true).Select(goqu.COUNT("*"))
	if len(where) > 0 {
		ds = ds.Where(where...)
	}
	q, args, err := ds.ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count accounts: %w", err)
	}
	var n int64
	if err := r.db.GetContext(ctx, &n, q, args...); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

func (r *AccountRepository) ExistsByHandle(ctx context.Context, handle string) (bool, error) {
	n, err := r.count(ctx, goqu.Ex{"handle": handle})
	return n > 0, err
}

func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	n, err := r.count(ctx, goqu.Ex{"email": email})
	return n > 0, err
}

func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx)
}

func (r *AccountRepository) Update(ctx context.Context, a *domain.Account) error {
	q, args, err := dialect.Update(accountsTable).Prepared(true).Set(goqu.Record{
		"name":          a.Name,
		"handle":        a.Handle,
		"email":         a.Email,
		"password_hash": a.PasswordHash,
		"role":          string(a.Role),
		"status":        string(a.Status),
		"updated_at":    a.UpdatedAt,
	}).Where(goqu.Ex{"id": a.ID}).ToSQL()
	if err != nil {
		return fmt.Errorf("build update account: %w", err)
	}

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		if derr := uniqueViolation(err); derr != nil {
			return derr
		}
		return fmt.Errorf("update account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account rows: %w", err)
	}
	if n == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) List(ctx context.Context, f ports.AccountFilter) ([]*domain.Account, int64, error) {
	var where []goqu.Expression
	if f.Search != "" {
		where = append(where, goqu.Or(
			containsFold("name", f.Search),
			containsFold("handle", f.Search),
			containsFold("email", f.Search),
		))
	}
	if f.Role != "" {
		where = append(where, goqu.Ex{"role": string(f.Role)})
	}
	if f.Status != "" {
		where = append(where, goqu.Ex{"status": string(f.Status)})
	}

	total, err := r.count(ctx, where...)
	if err != nil {
		return nil, 0, err
	}

	page, limit := ports.NormalizePage(f.Page, f.Limit)
	ds := dialect.From(accountsTable).Prepared(true).Select(accountColumns...).
		Order(goqu.I("id").Asc()).
		Limit(uint(limit)).
		Offset(uint(ports.Offset(page, limit)))
	if len(where) > 0 {
		ds = ds.Where(where...)
	}
	q, args, err := ds.ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build list accounts: %w", err)
	}

	var rows []accountRow
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, total, nil
}
