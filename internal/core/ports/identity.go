package ports

import (
	"context"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
)

// ExternalIdentity is what an identity provider vouches for.
type ExternalIdentity struct {
	Email       string
	DisplayName string
}

// IdentityProvider verifies an opaque external credential.
// It returns domain.ErrInvalidCredentials when the credential is rejected and
// domain.ErrProviderUnavailable when it cannot be checked at all.
type IdentityProvider interface {
	Verify(ctx context.Context, credential string) (*ExternalIdentity, error)
}

// TokenIssuer mints and checks session tokens.
type TokenIssuer interface {
	Issue(subject string, role domain.Role) (string, error)
	Validate(token string) (domain.Principal, error)
}

// SecretHasher is a one-way password hash.
type SecretHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}
