package ports

import (
	"context"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
)

type RegisterInput struct {
	Name     string
	Handle   string
	Email    string
	Password string
}

type ExternalLoginInput struct {
	Credential string
	// DisplayName is used when the provider does not supply one.
	DisplayName   string
	RequestedRole string
}

type AuthResult struct {
	Token   string
	Account *domain.Account
	Created bool
}

type IdentityService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.Account, error)
	Login(ctx context.Context, handle, password string) (*AuthResult, error)
	LoginExternal(ctx context.Context, input ExternalLoginInput) (*AuthResult, error)
	Authenticate(ctx context.Context, token string) (domain.Principal, error)
}
