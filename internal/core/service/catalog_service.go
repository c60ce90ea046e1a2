package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
	"github.com/MrxHuang/alexandriaBackend/internal/core/ports"
)

// CatalogService serves authors and items, with availability derived from
// open loans.
type CatalogService struct {
	catalog ports.CatalogRepository
	loans   ports.LoanRepository
	cache   ports.Cache
	log     zerolog.Logger
}

func NewCatalogService(catalog ports.CatalogRepository, loans ports.LoanRepository, cache ports.Cache, log zerolog.Logger) *CatalogService {
	return &CatalogService{catalog: catalog, loans: loans, cache: cache, log: log}
}

var _ ports.CatalogService = (*CatalogService)(nil)

func (s *CatalogService) CreateAuthor(ctx context.Context, in ports.CreateAuthorInput) (*domain.Author, error) {
	if strings.TrimSpace(in.FirstName) == "" {
		return nil, fmt.Errorf("%w: first name is required", domain.ErrInvalidInput)
	}
	a, err := s.catalog.CreateAuthor(ctx, &domain.Author{
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		Nationality: strings.TrimSpace(in.Nationality),
		BirthDate:   in.BirthDate,
	})
	if err != nil {
		logFailure(s.log, err, "failed to create author")
		return nil, err
	}
	return a, nil
}

func (s *CatalogService) GetAuthor(ctx context.Context, id int64) (*domain.Author, error) {
	a, err := readThrough(ctx, s.cache, s.log, ports.RegionAuthors, idKey(id), func() (*domain.Author, error) {
		return s.catalog.FindAuthorByID(ctx, id)
	})
	logFailure(s.log, err, "failed to load author")
	return a, err
}

func (s *CatalogService) CreateItem(ctx context.Context, in ports.CreateItemInput) (*domain.CatalogItem, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.ISBN) == "" {
		return nil, fmt.Errorf("%w: title and isbn are required", domain.ErrInvalidInput)
	}
	item, err := s.catalog.CreateItem(ctx, &domain.CatalogItem{
		Title:    strings.TrimSpace(in.Title),
		ISBN:     strings.TrimSpace(in.ISBN),
		Year:     in.Year,
		AuthorID: in.AuthorID,
	})
	if err != nil {
		logFailure(s.log, err, "failed to create item")
		return nil, err
	}

	s.cache.Invalidate(ctx, ports.RegionItemsByAuthor, idKey(item.AuthorID))
	return item, nil
}

func (s *CatalogService) GetItem(ctx context.Context, id int64) (*ports.ItemView, error) {
	v, err := readThrough(ctx, s.cache, s.log, ports.RegionItems, idKey(id), func() (*ports.ItemView, error) {
		item, err := s.catalog.FindItemByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return s.view(ctx, item)
	})
	logFailure(s.log, err, "failed to load item")
	return v, err
}

func (s *CatalogService) ListItemsByAuthor(ctx context.Context, authorID int64) ([]ports.ItemView, error) {
	views, err := readThrough(ctx, s.cache, s.log, ports.RegionItemsByAuthor, idKey(authorID), func() ([]ports.ItemView, error) {
		if _, err := s.catalog.FindAuthorByID(ctx, authorID); err != nil {
			return nil, err
		}
		items, err := s.catalog.ListItemsByAuthor(ctx, authorID)
		if err != nil {
			return nil, err
		}
		out := make([]ports.ItemView, 0, len(items))
		for _, item := range items {
			v, err := s.view(ctx, item)
			if err != nil {
				return nil, err
			}
			out = append(out, *v)
		}
		return out, nil
	})
	logFailure(s.log, err, "failed to list items by author")
	return views, err
}

func (s *CatalogService) view(ctx context.Context, item *domain.CatalogItem) (*ports.ItemView, error) {
	onLoan, err := s.loans.HasOpenLoan(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	return &ports.ItemView{CatalogItem: *item, Available: !onLoan}, nil
}
