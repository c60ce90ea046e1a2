package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
	"github.com/MrxHuang/alexandriaBackend/internal/core/ports"
)

// CatalogRepository implements ports.CatalogRepository using MongoDB.
type CatalogRepository struct {
	db *mongo.Database
}

func NewCatalogRepository(db *mongo.Database) *CatalogRepository {
	return &CatalogRepository{db: db}
}

var _ ports.CatalogRepository = (*CatalogRepository)(nil)

type mongoAuthor struct {
	ID          int64      `bson:"_id"`
	FirstName   string     `bson:"first_name"`
	LastName    string     `bson:"last_name"`
	Nationality string     `bson:"nationality,omitempty"`
	BirthDate   *time.Time `bson:"birth_date,omitempty"`
}

type mongoItem struct {
	ID       int64  `bson:"_id"`
	Title    string `bson:"title"`
	ISBN     string `bson:"isbn"`
	Year     int    `bson:"year"`
	AuthorID int64  `bson:"author_id"`
}

func (m mongoItem) toDomain() *domain.CatalogItem {
	return &domain.CatalogItem{ID: m.ID, Title: m.Title, ISBN: m.ISBN, Year: m.Year, AuthorID: m.AuthorID}
}

func (r *CatalogRepository) CreateAuthor(ctx context.Context, a *domain.Author) (*domain.Author, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := nextID(ctx, r.db, collectionAuthors)
	if err != nil {
		return nil, err
	}
	doc := mongoAuthor{ID: id, FirstName: a.FirstName, LastName: a.LastName, Nationality: a.Nationality, BirthDate: a.BirthDate}
	if _, err := r.db.Collection(collectionAuthors).InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert author: %w", err)
	}
	created := *a
	created.ID = id
	return &created, nil
}

func (r *CatalogRepository) FindAuthorByID(ctx context.Context, id int64) (*domain.Author, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var m mongoAuthor
	if err := r.db.Collection(collectionAuthors).FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAuthorNotFound
		}
		return nil, fmt.Errorf("find author: %w", err)
	}
	return &domain.Author{ID: m.ID, FirstName: m.FirstName, LastName: m.LastName, Nationality: m.Nationality, BirthDate: m.BirthDate}, nil
}

func (r *CatalogRepository) CreateItem(ctx context.Context, item *domain.CatalogItem) (*domain.CatalogItem, error) {
	// Mongo has no foreign keys; check the author explicitly.
	if _, err := r.FindAuthorByID(ctx, item.AuthorID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := nextID(ctx, r.db, collectionItems)
	if err != nil {
		return nil, err
	}
	doc := mongoItem{ID: id, Title: item.Title, ISBN: item.ISBN, Year: item.Year, AuthorID: item.AuthorID}
	if _, err := r.db.Collection(collectionItems).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrIsbnTaken
		}
		return nil, fmt.Errorf("insert item: %w", err)
	}
	created := *item
	created.ID = id
	return &created, nil
}

func (r *CatalogRepository) FindItemByID(ctx context.Context, id int64) (*domain.CatalogItem, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var m mongoItem
	if err := r.db.Collection(collectionItems).FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrItemNotFound
		}
		return nil, fmt.Errorf("find item: %w", err)
	}
	return m.toDomain(), nil
}

func (r *CatalogRepository) ListItemsByAuthor(ctx context.Context, authorID int64) ([]*domain.CatalogItem, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.db.Collection(collectionItems).Find(ctx, bson.M{"author_id": authorID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoItem
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	out := make([]*domain.CatalogItem, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
