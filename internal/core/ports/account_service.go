package ports

import (
	"context"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
)

// CreateAccountInput carries a new account. Role and Status fall back to
// their defaults when empty.
type CreateAccountInput struct {
	Name      string
	Handle    string
	Email     string
	Password  string
	Role      domain.Role
	Status    domain.Status
	Bootstrap bool
}

// AccountPatch is a partial update: nil fields are left untouched.
type AccountPatch struct {
	Name     *string
	Handle   *string
	Email    *string
	Password *string
	Role     *domain.Role
	Status   *domain.Status
}

type AccountQuery struct {
	Search string
	Role   domain.Role
	Status domain.Status
	Page   int
	Limit  int
}

// AccountService is the account directory.
type AccountService interface {
	Create(ctx context.Context, input CreateAccountInput) (*domain.Account, error)
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	FindByHandle(ctx context.Context, handle string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	ExistsByHandle(ctx context.Context, handle string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id int64, patch AccountPatch) (*domain.Account, error)
	List(ctx context.Context, query AccountQuery) (*Page[*domain.Account], error)
}
