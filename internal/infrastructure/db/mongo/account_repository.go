package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
	"github.com/MrxHuang/alexandriaBackend/internal/core/ports"
)

type AccountRepository struct {
	db  *mongo.Database
	col *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{db: db, col: db.Collection(collectionAccounts)}
}

var _ ports.AccountRepository = (*AccountRepository)(nil)

type mongoAccount struct {
	ID           int64  `bson:"_id"`
	Name         string `bson:"name"`
	Handle       string `bson:"handle"`
	Email        string `bson:"email"`
	PasswordHash string `bson:"password_hash"`
	Role         string `bson:"role"`
	Status       string `bson:"status"`
	Bootstrap    bool   `bson:"bootstrap,omitempty"`
	CreatedAt    int64  `bson:"created_at"`
	UpdatedAt    int64  `bson:"updated_at"`
}

func (m mongoAccount) toDomain() *domain.Account {
	return &domain.Account{
		ID:           m.ID,
		Name:         m.Name,
		Handle:       m.Handle,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         domain.Role(m.Role),
		Status:       domain.Status(m.Status),
		Bootstrap:    m.Bootstrap,
		CreatedAt:    unixToTime(m.CreatedAt),
		UpdatedAt:    unixToTime(m.UpdatedAt),
	}
}

// duplicateKeyError maps the index named in a duplicate-key error to its
// domain error.
func duplicateKeyError(err error, byIndex map[string]error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return nil
	}
	msg := err.Error()
	for index, target := range byIndex {
		if strings.Contains(msg, index) {
			return target
		}
	}
	return nil
}

var accountIndexErrors = map[string]error{
	"index: handle_1":         domain.ErrHandleTaken,
	"index: email_1":          domain.ErrEmailTaken,
	"index: single_bootstrap": domain.ErrBootstrapClaimed,
}

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := nextID(ctx, r.db, collectionAccounts)
	if err != nil {
		return nil, err
	}

	doc := mongoAccount{
		ID:           id,
		Name:         a.Name,
		Handle:       a.Handle,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Role:         string(a.Role),
		Status:       string(a.Status),
		Bootstrap:    a.Bootstrap,
		CreatedAt:    a.CreatedAt.Unix(),
		UpdatedAt:    a.UpdatedAt.Unix(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if derr := duplicateKeyError(err, accountIndexErrors); derr != nil {
			return nil, derr
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	created := *a
	created.ID = id
	return &created, nil
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var m mongoAccount
	if err := r.col.FindOne(ctx, filter).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return m.toDomain(), nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *AccountRepository) FindByHandle(ctx context.Context, handle string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"handle": handle})
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *AccountRepository) count(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

func (r *AccountRepository) ExistsByHandle(ctx context.Context, handle string) (bool, error) {
	n, err := r.count(ctx, bson.M{"handle": handle})
	return n > 0, err
}

func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	n, err := r.count(ctx, bson.M{"email": email})
	return n > 0, err
}

func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, bson.M{})
}

func (r *AccountRepository) Update(ctx context.Context, a *domain.Account) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": a.ID}, bson.M{"$set": bson.M{
		"name":          a.Name,
		"handle":        a.Handle,
		"email":         a.Email,
		"password_hash": a.PasswordHash,
		"role":          string(a.Role),
		"status":        string(a.Status),
		"updated_at":    a.UpdatedAt.Unix(),
	}})
	if err != nil {
		if derr := duplicateKeyError(err, accountIndexErrors); derr != nil {
			return derr
		}
		return fmt.Errorf("update account: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) List(ctx context.Context, f ports.AccountFilter) ([]*domain.Account, int64, error) {
	filter := bson.M{}
	if f.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"handle": re},
			bson.M{"email": re},
		}
	}
	if f.Role != "" {
		filter["role"] = string(f.Role)
	}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}

	total, err := r.count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	page, limit := ports.NormalizePage(f.Page, f.Limit)
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(ports.Offset(page, limit))).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoAccount
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode accounts: %w", err)
	}
	out := make([]*domain.Account, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, total, nil
}
