package ports

import (
	"context"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
)

// CatalogRepository persists authors and lendable items.
type CatalogRepository interface {
	CreateAuthor(ctx context.Context, a *domain.Author) (*domain.Author, error)
	FindAuthorByID(ctx context.Context, id int64) (*domain.Author, error)
	// CreateItem returns domain.ErrIsbnTaken on a duplicate ISBN and
	// domain.ErrAuthorNotFound when the author does not exist.
	CreateItem(ctx context.Context, item *domain.CatalogItem) (*domain.CatalogItem, error)
	FindItemByID(ctx context.Context, id int64) (*domain.CatalogItem, error)
	ListItemsByAuthor(ctx context.Context, authorID int64) ([]*domain.CatalogItem, error)
}
