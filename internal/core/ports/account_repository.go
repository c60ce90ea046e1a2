package ports

import (
	"context"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
)

// AccountFilter narrows an account listing. Zero values mean "any".
type AccountFilter struct {
	Search string // case-insensitive substring of name, handle or email
	Role   domain.Role
	Status domain.Status
	Page   int // 1-based
	Limit  int
}

// AccountRepository persists accounts.
type AccountRepository interface {
	// Create stores a new account and returns it with its ID set.
	// Unique violations map to domain.ErrHandleTaken, domain.ErrEmailTaken
	// or domain.ErrBootstrapClaimed.
	Create(ctx context.Context, a *domain.Account) (*domain.Account, error)
	FindByID(ctx context.Context, id int64) (*domain.Account, error)
	FindByHandle(ctx context.Context, handle string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	ExistsByHandle(ctx context.Context, handle string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Count(ctx context.Context) (int64, error)
	// Update writes every mutable field of a.
	Update(ctx context.Context, a *domain.Account) error
	List(ctx context.Context, filter AccountFilter) ([]*domain.Account, int64, error)
}
