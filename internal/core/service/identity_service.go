package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
	"github.com/MrxHuang/alexandriaBackend/internal/core/ports"
)

// maxProvisionAttempts bounds how often a first external login re-derives
// its handle or role after losing a race to a concurrent login.
const maxProvisionAttempts = 5

// IdentityService signs accounts in, either with a password or through an
// external identity provider, and issues session tokens.
type IdentityService struct {
	accounts ports.AccountService
	provider ports.IdentityProvider
	tokens   ports.TokenIssuer
	hasher   ports.SecretHasher
	log      zerolog.Logger
}

// NewIdentityService wires the reconciler. provider may be nil, in which case
// external logins fail with domain.ErrProviderUnavailable.
func NewIdentityService(
	accounts ports.AccountService,
	provider ports.IdentityProvider,
	tokens ports.TokenIssuer,
	hasher ports.SecretHasher,
	log zerolog.Logger,
) *IdentityService {
	return &IdentityService{
		accounts: accounts,
		provider: provider,
		tokens:   tokens,
		hasher:   hasher,
		log:      log,
	}
}

var _ ports.IdentityService = (*IdentityService)(nil)

// Register creates a password account. Self-registration always yields the
// default role.
func (s *IdentityService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Account, error) {
	return s.accounts.Create(ctx, ports.CreateAccountInput{
		Name:     in.Name,
		Handle:   in.Handle,
		Email:    in.Email,
		Password: in.Password,
		Role:     domain.DefaultRole,
		Status:   domain.StatusActive,
	})
}

func (s *IdentityService) Login(ctx context.Context, handle, password string) (*ports.AuthResult, error) {
	if handle == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	a, err := s.accounts.FindByHandle(ctx, handle)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(password, a.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	if !a.Active() {
		return nil, domain.ErrAccountInactive
	}

	return s.issue(a, false)
}

// LoginExternal maps a verified external identity to exactly one local
// account and returns a session token for it.
//
// A first login creates the account: the very first account in the system
// becomes the bootstrap admin, later ones take the requested role when it is
// valid and the default role otherwise. A later login never changes the
// stored role; asking for a different one fails with
// domain.ErrRoleChangeForbidden. Inactive accounts are reactivated.
func (s *IdentityService) LoginExternal(ctx context.Context, in ports.ExternalLoginInput) (*ports.AuthResult, error) {
	ident, err := s.verify(ctx, in.Credential)
	if err != nil {
		return nil, err
	}

	email := domain.NormalizeEmail(ident.Email)
	if email == "" {
		return nil, domain.ErrInvalidCredentials
	}

	requested, hasRequested := domain.Role(""), false
	if in.RequestedRole != "" {
		requested, hasRequested = domain.ParseRole(in.RequestedRole)
		if !hasRequested {
			s.log.Debug().Str("email", email).Str("requested_role", in.RequestedRole).Msg("ignoring unknown requested role")
		}
	}

	a, err := s.accounts.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		name := firstNonEmpty(ident.DisplayName, in.DisplayName, localPart(email))
		a, err = s.provision(ctx, email, name, requested, hasRequested)
		if err == nil {
			return s.issue(a, true)
		}
		if !errors.Is(err, domain.ErrEmailTaken) {
			return nil, err
		}
		// A concurrent first login with the same email won; continue as a
		// returning login against its account.
		a, err = s.accounts.FindByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	if hasRequested && requested != a.Role {
		s.log.Warn().Str("handle", a.Handle).Str("role", string(a.Role)).Str("requested_role", string(requested)).Msg("role change refused on login")
		return nil, domain.ErrRoleChangeForbidden
	}

	if !a.Active() {
		active := domain.StatusActive
		if a, err = s.accounts.Update(ctx, a.ID, ports.AccountPatch{Status: &active}); err != nil {
			return nil, err
		}
		s.log.Info().Str("handle", a.Handle).Msg("account reactivated by external login")
	}

	return s.issue(a, false)
}

func (s *IdentityService) Authenticate(_ context.Context, token string) (domain.Principal, error) {
	p, err := s.tokens.Validate(token)
	if err != nil {
		return domain.Principal{}, domain.ErrInvalidCredentials
	}
	return p, nil
}

func (s *IdentityService) verify(ctx context.Context, credential string) (*ports.ExternalIdentity, error) {
	if s.provider == nil {
		return nil, domain.ErrProviderUnavailable
	}
	if strings.TrimSpace(credential) == "" {
		return nil, domain.ErrInvalidCredentials
	}

	ident, err := s.provider.Verify(ctx, credential)
	switch {
	case err == nil:
		return ident, nil
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrProviderUnavailable):
		return nil, err
	default:
		s.log.Error().Err(err).Msg("identity provider failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
}

// provision creates the account for a first external login. Losing the
// handle or the bootstrap slot to a concurrent login triggers another round;
// losing the email is returned to the caller.
func (s *IdentityService) provision(ctx context.Context, email, name string, requested domain.Role, hasRequested bool) (*domain.Account, error) {
	for attempt := 0; attempt < maxProvisionAttempts; attempt++ {
		handle, err := s.deriveHandle(ctx, email)
		if err != nil {
			return nil, err
		}

		count, err := s.accounts.Count(ctx)
		if err != nil {
			return nil, err
		}

		role, bootstrap := domain.DefaultRole, false
		switch {
		case count == 0:
			role, bootstrap = domain.RoleAdmin, true
		case hasRequested:
			role = requested
		}

		a, err := s.accounts.Create(ctx, ports.CreateAccountInput{
			Name:      name,
			Handle:    handle,
			Email:     email,
			Password:  uuid.NewString(),
			Role:      role,
			Status:    domain.StatusActive,
			Bootstrap: bootstrap,
		})
		switch {
		case err == nil:
			if bootstrap {
				s.log.Info().Str("handle", a.Handle).Msg("bootstrap admin created")
			}
			return a, nil
		case errors.Is(err, domain.ErrHandleTaken), errors.Is(err, domain.ErrBootstrapClaimed):
			s.log.Debug().Err(err).Str("email", email).Int("attempt", attempt+1).Msg("retrying account provisioning")
			continue
		default:
			return nil, err
		}
	}
	return nil, fmt.Errorf("provision account for %s: gave up after %d attempts", email, maxProvisionAttempts)
}

// deriveHandle probes base, base1, base2, ... until one is free.
func (s *IdentityService) deriveHandle(ctx context.Context, email string) (string, error) {
	base := baseHandle(email)
	candidate := base
	for n := 1; ; n++ {
		taken, err := s.accounts.ExistsByHandle(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(n)
	}
}

func (s *IdentityService) issue(a *domain.Account, created bool) (*ports.AuthResult, error) {
	token, err := s.tokens.Issue(a.Handle, a.Role)
	if err != nil {
		s.log.Error().Err(err).Str("handle", a.Handle).Msg("failed to issue token")
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &ports.AuthResult{Token: token, Account: a, Created: created}, nil
}

// baseHandle is the email local part, lower-cased and stripped to [a-z0-9],
// padded with a "user" prefix when shorter than three characters.
func baseHandle(email string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(localPart(email)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	h := b.String()
	if len(h) < 3 {
		h = "user" + h
	}
	return h
}

func localPart(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
