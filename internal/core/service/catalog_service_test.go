package service

import (
	"context"
	"errors"
	"testing"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
	"github.com/MrxHuang/alexandriaBackend/internal/core/ports"
)

func TestCatalogService_GetItemCached(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	item := f.item(t, "978-0")

	for i := 0; i < 3; i++ {
		v, err := f.catalog.GetItem(ctx, item.ID)
		if err != nil {
			t.Fatalf("GetItem: %v", err)
		}
		if v.Title != item.Title || v.ISBN != item.ISBN {
			t.Fatalf("unexpected view %+v", v)
		}
	}
	if n := f.items.reads(); n != 1 {
		t.Fatalf("expected a single repository read, got %d", n)
	}
	if s := f.cache.Stats(ports.RegionItems); s.Hits != 2 {
		t.Errorf("expected 2 cache hits, got %d", s.Hits)
	}
}

func TestCatalogService_Errors(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	if _, err := f.catalog.GetItem(ctx, 777); !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
	if _, err := f.catalog.ListItemsByAuthor(ctx, 777); !errors.Is(err, domain.ErrAuthorNotFound) {
		t.Errorf("expected ErrAuthorNotFound, got %v", err)
	}
	if _, err := f.catalog.CreateItem(ctx, ports.CreateItemInput{Title: "x", ISBN: "1", AuthorID: 777}); !errors.Is(err, domain.ErrAuthorNotFound) {
		t.Errorf("expected ErrAuthorNotFound, got %v", err)
	}
	f.item(t, "dup")
	if _, err := f.catalog.CreateItem(ctx, ports.CreateItemInput{Title: "y", ISBN: "dup", AuthorID: f.author.ID}); !errors.Is(err, domain.ErrIsbnTaken) {
		t.Errorf("expected ErrIsbnTaken, got %v", err)
	}
	if _, err := f.catalog.CreateItem(ctx, ports.CreateItemInput{ISBN: "z"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCatalogService_NewItemShowsInAuthorList(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	f.item(t, "1")

	list, err := f.catalog.ListItemsByAuthor(ctx, f.author.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("unexpected list %+v (%v)", list, err)
	}

	f.item(t, "2")
	list, err = f.catalog.ListItemsByAuthor(ctx, f.author.ID)
	if err != nil || len(list) != 2 {
		t.Fatalf("author list stale after new item: %+v (%v)", list, err)
	}
}
