package ports

import (
	"context"
	"time"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
)

type CreateAuthorInput struct {
	FirstName   string
	LastName    string
	Nationality string
	BirthDate   *time.Time
}

type CreateItemInput struct {
	Title    string
	ISBN     string
	Year     int
	AuthorID int64
}

// ItemView is a catalog item as shown to readers, with its current availability.
type ItemView struct {
	domain.CatalogItem
	Available bool `json:"available"`
}

type CatalogService interface {
	CreateAuthor(ctx context.Context, input CreateAuthorInput) (*domain.Author, error)
	GetAuthor(ctx context.Context, id int64) (*domain.Author, error)
	CreateItem(ctx context.Context, input CreateItemInput) (*domain.CatalogItem, error)
	GetItem(ctx context.Context, id int64) (*ItemView, error)
	ListItemsByAuthor(ctx context.Context, authorID int64) ([]ItemView, error)
}
