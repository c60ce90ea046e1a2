package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
	"github.com/MrxHuang/alexandriaBackend/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory account repository
// ---------------------------------------------------------------------------

type stubAccountRepo struct {
	mu       sync.Mutex
	byID     map[int64]*domain.Account
	nextID   int64
	failWith error // if set, every call returns this error
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{byID: make(map[int64]*domain.Account)}
}

func cloneAccount(a *domain.Account) *domain.Account {
	c := *a
	return &c
}

func (r *stubAccountRepo) Create(_ context.Context, a *domain.Account) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	for _, existing := range r.byID {
		switch {
		case existing.Handle == a.Handle:
			return nil, domain.ErrHandleTaken
		case existing.Email == a.Email:
			return nil, domain.ErrEmailTaken
		case existing.Bootstrap && a.Bootstrap:
			return nil, domain.ErrBootstrapClaimed
		}
	}
	r.nextID++
	c := cloneAccount(a)
	c.ID = r.nextID
	r.byID[c.ID] = c
	return cloneAccount(c), nil
}

func (r *stubAccountRepo) find(match func(*domain.Account) bool) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	for _, a := range r.byID {
		if match(a) {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) FindByID(_ context.Context, id int64) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool { return a.ID == id })
}

func (r *stubAccountRepo) FindByHandle(_ context.Context, handle string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool { return a.Handle == handle })
}

func (r *stubAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	return r.find(func(a *domain.Account) bool { return a.Email == email })
}

func (r *stubAccountRepo) ExistsByHandle(ctx context.Context, handle string) (bool, error) {
	_, err := r.FindByHandle(ctx, handle)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *stubAccountRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *stubAccountRepo) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return 0, r.failWith
	}
	return int64(len(r.byID)), nil
}

func (r *stubAccountRepo) Update(_ context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[a.ID]; !ok {
		return domain.ErrAccountNotFound
	}
	r.byID[a.ID] = cloneAccount(a)
	return nil
}

func (r *stubAccountRepo) List(_ context.Context, f ports.AccountFilter) ([]*domain.Account, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*domain.Account
	needle := strings.ToLower(f.Search)
	for _, a := range r.byID {
		if f.Role != "" && a.Role != f.Role {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(a.Name), needle) &&
			!strings.Contains(strings.ToLower(a.Handle), needle) &&
			!strings.Contains(strings.ToLower(a.Email), needle) {
			continue
		}
		matched = append(matched, cloneAccount(a))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, f.Page, f.Limit), int64(len(matched)), nil
}

func paginate[T any](items []T, page, limit int) []T {
	start := ports.Offset(page, limit)
	if start >= len(items) {
		return nil
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// ---------------------------------------------------------------------------
// In-memory catalog repository
// ---------------------------------------------------------------------------

type stubCatalogRepo struct {
	mu        sync.Mutex
	authors   map[int64]*domain.Author
	items     map[int64]*domain.CatalogItem
	nextID    int64
	itemReads int
}

func newStubCatalogRepo() *stubCatalogRepo {
	return &stubCatalogRepo{
		authors: make(map[int64]*domain.Author),
		items:   make(map[int64]*domain.CatalogItem),
	}
}

func (r *stubCatalogRepo) CreateAuthor(_ context.Context, a *domain.Author) (*domain.Author, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c := *a
	c.ID = r.nextID
	r.authors[c.ID] = &c
	out := c
	return &out, nil
}

func (r *stubCatalogRepo) FindAuthorByID(_ context.Context, id int64) (*domain.Author, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.authors[id]
	if !ok {
		return nil, domain.ErrAuthorNotFound
	}
	c := *a
	return &c, nil
}

func (r *stubCatalogRepo) CreateItem(_ context.Context, item *domain.CatalogItem) (*domain.CatalogItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.authors[item.AuthorID]; !ok {
		return nil, domain.ErrAuthorNotFound
	}
	for _, existing := range r.items {
		if existing.ISBN == item.ISBN {
			return nil, domain.ErrIsbnTaken
		}
	}
	r.nextID++
	c := *item
	c.ID = r.nextID
	r.items[c.ID] = &c
	out := c
	return &out, nil
}

func (r *stubCatalogRepo) FindItemByID(_ context.Context, id int64) (*domain.CatalogItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.itemReads++
	item, ok := r.items[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	c := *item
	return &c, nil
}

func (r *stubCatalogRepo) ListItemsByAuthor(_ context.Context, authorID int64) ([]*domain.CatalogItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.CatalogItem
	for _, item := range r.items {
		if item.AuthorID == authorID {
			c := *item
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubCatalogRepo) reads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.itemReads
}

// ---------------------------------------------------------------------------
// In-memory loan repository; a single mutex makes Open atomic
// ---------------------------------------------------------------------------

type stubLoanRepo struct {
	mu        sync.Mutex
	loans     map[int64]*domain.Loan
	nextID    int64
	findCalls int
	failWith  error
	// afterFind runs once FindByID has taken its snapshot, outside the lock.
	afterFind func()
}

func newStubLoanRepo() *stubLoanRepo {
	return &stubLoanRepo{loans: make(map[int64]*domain.Loan)}
}

func cloneLoan(l *domain.Loan) *domain.Loan {
	c := *l
	if l.ReturnDate != nil {
		d := *l.ReturnDate
		c.ReturnDate = &d
	}
	return &c
}

func (r *stubLoanRepo) Open(_ context.Context, loan *domain.Loan, maxOpen int) (*domain.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	open := 0
	for _, l := range r.loans {
		if l.Returned {
			continue
		}
		if l.ItemID == loan.ItemID {
			return nil, domain.ErrItemUnavailable
		}
		if l.AccountID == loan.AccountID {
			open++
		}
	}
	if open >= maxOpen {
		return nil, domain.ErrLoanLimitExceeded
	}
	r.nextID++
	c := cloneLoan(loan)
	c.ID = r.nextID
	r.loans[c.ID] = c
	return cloneLoan(c), nil
}

func (r *stubLoanRepo) FindByID(_ context.Context, id int64) (*domain.Loan, error) {
	r.mu.Lock()
	r.findCalls++
	l, ok := r.loans[id]
	var snapshot *domain.Loan
	if ok {
		snapshot = cloneLoan(l)
	}
	hook := r.afterFind
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	return snapshot, nil
}

func (r *stubLoanRepo) MarkReturned(_ context.Context, id int64, on time.Time) (*domain.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.loans[id]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	if err := l.MarkReturned(on); err != nil {
		return nil, err
	}
	return cloneLoan(l), nil
}

func (r *stubLoanRepo) Delete(_ context.Context, id int64) (*domain.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.loans[id]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	delete(r.loans, id)
	return l, nil
}

func (r *stubLoanRepo) List(_ context.Context, f ports.LoanFilter) ([]*domain.Loan, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*domain.Loan
	for _, l := range r.loans {
		if f.AccountID != nil && l.AccountID != *f.AccountID {
			continue
		}
		if f.ItemID != nil && l.ItemID != *f.ItemID {
			continue
		}
		if f.Returned != nil && l.Returned != *f.Returned {
			continue
		}
		matched = append(matched, cloneLoan(l))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, f.Page, f.Limit), int64(len(matched)), nil
}

func (r *stubLoanRepo) HasOpenLoan(_ context.Context, itemID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.loans {
		if l.ItemID == itemID && !l.Returned {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubLoanRepo) CountOpenByAccount(_ context.Context, accountID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, l := range r.loans {
		if l.AccountID == accountID && !l.Returned {
			n++
		}
	}
	return n, nil
}

func (r *stubLoanRepo) finds() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findCalls
}

// ---------------------------------------------------------------------------
// Auth collaborators
// ---------------------------------------------------------------------------

type stubHasher struct{}

func (stubHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }
func (stubHasher) Verify(p, h string) bool       { return h == "hashed:"+p }

type stubTokens struct{}

func (stubTokens) Issue(subject string, role domain.Role) (string, error) {
	return subject + "|" + string(role), nil
}

func (stubTokens) Validate(token string) (domain.Principal, error) {
	handle, role, ok := strings.Cut(token, "|")
	if !ok {
		return domain.Principal{}, errors.New("malformed token")
	}
	return domain.Principal{Handle: handle, Role: domain.Role(role)}, nil
}

// stubProvider treats the credential itself as "email" or "email;Display Name".
type stubProvider struct {
	err error
}

func (p stubProvider) Verify(_ context.Context, credential string) (*ports.ExternalIdentity, error) {
	if p.err != nil {
		return nil, p.err
	}
	email, name, _ := strings.Cut(credential, ";")
	if !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidCredentials
	}
	return &ports.ExternalIdentity{Email: email, DisplayName: name}, nil
}
