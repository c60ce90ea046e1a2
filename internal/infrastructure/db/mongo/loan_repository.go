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

// LoanRepository implements ports.LoanRepository using MongoDB without
// multi-document transactions. The one-open-loan-per-item rule is a partial
// unique index; the per-borrower cap is a counter document per account that
// only increments while below the limit.
type LoanRepository struct {
	db    *mongo.Database
	loans *mongo.Collection
	holds *mongo.Collection
}

func NewLoanRepository(db *mongo.Database) *LoanRepository {
	return &LoanRepository{
		db:    db,
		loans: db.Collection(collectionLoans),
		holds: db.Collection(collectionHolds),
	}
}

var _ ports.LoanRepository = (*LoanRepository)(nil)

type mongoLoan struct {
	ID         int64      `bson:"_id"`
	ItemID     int64      `bson:"item_id"`
	AccountID  int64      `bson:"account_id"`
	LoanDate   time.Time  `bson:"loan_date"`
	ReturnDate *time.Time `bson:"return_date"`
	Returned   bool       `bson:"returned"`
}

func (m mongoLoan) toDomain() *domain.Loan {
	l := &domain.Loan{
		ID:        m.ID,
		ItemID:    m.ItemID,
		AccountID: m.AccountID,
		LoanDate:  m.LoanDate.UTC(),
		Returned:  m.Returned,
	}
	if m.ReturnDate != nil {
		d := m.ReturnDate.UTC()
		l.ReturnDate = &d
	}
	return l
}

func (r *LoanRepository) Open(ctx context.Context, loan *domain.Loan, maxOpen int) (*domain.Loan, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	// Availability is reported before the cap, matching the SQL store.
	onLoan, err := r.HasOpenLoan(ctx, loan.ItemID)
	if err != nil {
		return nil, err
	}
	if onLoan {
		return nil, domain.ErrItemUnavailable
	}

	if err := r.reserve(ctx, loan.AccountID, maxOpen); err != nil {
		return nil, err
	}

	id, err := nextID(ctx, r.db, collectionLoans)
	if err != nil {
		r.release(ctx, loan.AccountID)
		return nil, err
	}
	doc := mongoLoan{
		ID:        id,
		ItemID:    loan.ItemID,
		AccountID: loan.AccountID,
		LoanDate:  domain.Day(loan.LoanDate),
	}
	if _, err := r.loans.InsertOne(ctx, doc); err != nil {
		r.release(ctx, loan.AccountID)
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrItemUnavailable
		}
		return nil, fmt.Errorf("insert loan: %w", err)
	}
	return doc.toDomain(), nil
}

// reserve takes one of the borrower's open-loan slots. When the account is
// already at the limit the filter misses, the upsert collides with the
// existing counter, and the duplicate key is the refusal.
func (r *LoanRepository) reserve(ctx context.Context, accountID int64, maxOpen int) error {
	_, err := r.holds.UpdateOne(ctx,
		bson.M{"_id": accountID, "open": bson.M{"$lt": maxOpen}},
		bson.M{"$inc": bson.M{"open": 1}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrLoanLimitExceeded
		}
		return fmt.Errorf("reserve loan slot: %w", err)
	}
	return nil
}

func (r *LoanRepository) release(ctx context.Context, accountID int64) {
	_, _ = r.holds.UpdateOne(ctx,
		bson.M{"_id": accountID, "open": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"open": -1}},
	)
}

func (r *LoanRepository) FindByID(ctx context.Context, id int64) (*domain.Loan, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var m mongoLoan
	if err := r.loans.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, fmt.Errorf("find loan: %w", err)
	}
	return m.toDomain(), nil
}

func (r *LoanRepository) MarkReturned(ctx context.Context, id int64, on time.Time) (*domain.Loan, error) {
	loan, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := loan.MarkReturned(on); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.loans.UpdateOne(ctx,
		bson.M{"_id": id, "returned": false},
		bson.M{"$set": bson.M{"returned": true, "return_date": *loan.ReturnDate}},
	)
	if err != nil {
		return nil, fmt.Errorf("return loan: %w", err)
	}
	if res.ModifiedCount == 0 {
		return nil, domain.ErrAlreadyReturned
	}
	r.release(ctx, loan.AccountID)
	return loan, nil
}

func (r *LoanRepository) Delete(ctx context.Context, id int64) (*domain.Loan, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var m mongoLoan
	if err := r.loans.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, fmt.Errorf("delete loan: %w", err)
	}
	if !m.Returned {
		r.release(ctx, m.AccountID)
	}
	return m.toDomain(), nil
}

func (r *LoanRepository) List(ctx context.Context, f ports.LoanFilter) ([]*domain.Loan, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.AccountID != nil {
		filter["account_id"] = *f.AccountID
	}
	if f.ItemID != nil {
		filter["item_id"] = *f.ItemID
	}
	if f.Returned != nil {
		filter["returned"] = *f.Returned
	}

	total, err := r.loans.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count loans: %w", err)
	}

	page, limit := ports.NormalizePage(f.Page, f.Limit)
	cur, err := r.loans.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(ports.Offset(page, limit))).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, 0, fmt.Errorf("list loans: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoLoan
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode loans: %w", err)
	}
	out := make([]*domain.Loan, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, total, nil
}

func (r *LoanRepository) HasOpenLoan(ctx context.Context, itemID int64) (bool, error) {
	n, err := r.loans.CountDocuments(ctx, bson.M{"item_id": itemID, "returned": false}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check open loan: %w", err)
	}
	return n > 0, nil
}

func (r *LoanRepository) CountOpenByAccount(ctx context.Context, accountID int64) (int, error) {
	n, err := r.loans.CountDocuments(ctx, bson.M{"account_id": accountID, "returned": false})
	if err != nil {
		return 0, fmt.Errorf("count open loans: %w", err)
	}
	return int(n), nil
}
