package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
	"github.com/MrxHuang/alexandriaBackend/internal/core/ports"
)

const (
	authorsTable = "authors"
	itemsTable   = "items"
)

var itemColumns = []any{"id", "title", "isbn", "year", "author_id"}

type CatalogRepository struct {
	db *sqlx.DB
}

func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

var _ ports.CatalogRepository = (*CatalogRepository)(nil)

type authorRow struct {
	ID          int64        `db:"id"`
	FirstName   string       `db:"first_name"`
	LastName    string       `db:"last_name"`
	Nationality string       `db:"nationality"`
	BirthDate   sql.NullTime `db:"birth_date"`
}

type itemRow struct {
	ID       int64  `db:"id"`
	Title    string `db:"title"`
	ISBN     string `db:"isbn"`
	Year     int    `db:"year"`
	AuthorID int64  `db:"author_id"`
}

func (r itemRow) toDomain() *domain.CatalogItem {
	return &domain.CatalogItem{ID: r.ID, Title: r.Title, ISBN: r.ISBN, Year: r.Year, AuthorID: r.AuthorID}
}

func (r *CatalogRepository) CreateAuthor(ctx context.Context, a *domain.Author) (*domain.Author, error) {
	rec := goqu.Record{
		"first_name":  a.FirstName,
		"last_name":   a.LastName,
		"nationality": a.Nationality,
		"birth_date":  nil,
	}
	if a.BirthDate != nil {
		rec["birth_date"] = domain.Day(*a.BirthDate)
	}
	q, args, err := dialect.Insert(authorsTable).Prepared(true).Rows(rec).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build insert author: %w", err)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("insert author: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert author id: %w", err)
	}
	created := *a
	created.ID = id
	return &created, nil
}

func (r *CatalogRepository) FindAuthorByID(ctx context.Context, id int64) (*domain.Author, error) {
	q, args, err := dialect.From(authorsTable).Prepared(true).
		Select("id", "first_name", "last_name", "nationality", "birth_date").
		Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build find author: %w", err)
	}

	var row authorRow
	if err := r.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAuthorNotFound
		}
		return nil, fmt.Errorf("find author: %w", err)
	}

	a := &domain.Author{ID: row.ID, FirstName: row.FirstName, LastName: row.LastName, Nationality: row.Nationality}
	if row.BirthDate.Valid {
		d := row.BirthDate.Time.UTC()
		a.BirthDate = &d
	}
	return a, nil
}

func (r *CatalogRepository) CreateItem(ctx context.Context, item *domain.CatalogItem) (*domain.CatalogItem, error) {
	q, args, err := dialect.Insert(itemsTable).Prepared(true).Rows(goqu.Record{
		"title":     item.Title,
		"isbn":      item.ISBN,
		"year":      item.Year,
		"author_id": item.AuthorID,
	}).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build insert item: %w", err)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		if derr := uniqueViolation(err); derr != nil {
			return nil, derr
		}
		if foreignKeyViolation(err) {
			return nil, domain.ErrAuthorNotFound
		}
		return nil, fmt.Errorf("insert item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert item id: %w", err)
	}
	created := *item
	created.ID = id
	return &created, nil
}

func (r *CatalogRepository) FindItemByID(ctx context.Context, id int64) (*domain.CatalogItem, error) {
	q, args, err := dialect.From(itemsTable).Prepared(true).Select(itemColumns...).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build find item: %w", err)
	}
	var row itemRow
	if err := r.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, fmt.Errorf("find item: %w", err)
	}
	return row.toDomain(), nil
}

func (r *CatalogRepository) ListItemsByAuthor(ctx context.Context, authorID int64) ([]*domain.CatalogItem, error) {
	q, args, err := dialect.From(itemsTable).Prepared(true).Select(itemColumns...).
		Where(goqu.Ex{"author_id": authorID}).
		Order(goqu.I("id").Asc()).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list items: %w", err)
	}
	var rows []itemRow
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	out := make([]*domain.CatalogItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
