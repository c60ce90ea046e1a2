package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
	"github.com/MrxHuang/alexandriaBackend/internal/core/ports"
)

// AccountService is the account directory.
type AccountService struct {
	repo   ports.AccountRepository
	hasher ports.SecretHasher
	log    zerolog.Logger
	now    func() time.Time
}

func NewAccountService(repo ports.AccountRepository, hasher ports.SecretHasher, log zerolog.Logger) *AccountService {
	return &AccountService{repo: repo, hasher: hasher, log: log, now: time.Now}
}

var _ ports.AccountService = (*AccountService)(nil)

func (s *AccountService) Create(ctx context.Context, in ports.CreateAccountInput) (*domain.Account, error) {
	handle := strings.TrimSpace(in.Handle)
	email := domain.NormalizeEmail(in.Email)
	if handle == "" || email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: handle, email and password are required", domain.ErrInvalidInput)
	}

	if err := s.ensureHandleFree(ctx, handle); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := in.Role
	if role == "" {
		role = domain.DefaultRole
	}
	status := in.Status
	if status == "" {
		status = domain.StatusActive
	}

	now := s.now().UTC()
	created, err := s.repo.Create(ctx, &domain.Account{
		Name:         strings.TrimSpace(in.Name),
		Handle:       handle,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       status,
		Bootstrap:    in.Bootstrap,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		logFailure(s.log, err, "failed to create account")
		return nil, err
	}

	s.log.Info().Int64("account_id", created.ID).Str("handle", created.Handle).Str("role", string(created.Role)).Msg("account created")
	return created, nil
}

func (s *AccountService) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	a, err := s.repo.FindByID(ctx, id)
	logFailure(s.log, err, "failed to load account")
	return a, err
}

func (s *AccountService) FindByHandle(ctx context.Context, handle string) (*domain.Account, error) {
	a, err := s.repo.FindByHandle(ctx, strings.TrimSpace(handle))
	logFailure(s.log, err, "failed to find account by handle")
	return a, err
}

func (s *AccountService) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	a, err := s.repo.FindByEmail(ctx, domain.NormalizeEmail(email))
	logFailure(s.log, err, "failed to find account by email")
	return a, err
}

func (s *AccountService) ExistsByHandle(ctx context.Context, handle string) (bool, error) {
	ok, err := s.repo.ExistsByHandle(ctx, strings.TrimSpace(handle))
	logFailure(s.log, err, "failed to check handle")
	return ok, err
}

func (s *AccountService) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ok, err := s.repo.ExistsByEmail(ctx, domain.NormalizeEmail(email))
	logFailure(s.log, err, "failed to check email")
	return ok, err
}

func (s *AccountService) Count(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	logFailure(s.log, err, "failed to count accounts")
	return n, err
}

// Update applies the non-nil fields of patch. Uniqueness is re-checked only
// for a handle or email that actually changes, and the password is re-hashed
// only when a non-empty one is given.
func (s *AccountService) Update(ctx context.Context, id int64, patch ports.AccountPatch) (*domain.Account, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		a.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Handle != nil {
		handle := strings.TrimSpace(*patch.Handle)
		if handle == "" {
			return nil, fmt.Errorf("%w: handle must not be empty", domain.ErrInvalidInput)
		}
		if handle != a.Handle {
			if err := s.ensureHandleFree(ctx, handle); err != nil {
				return nil, err
			}
			a.Handle = handle
		}
	}
	if patch.Email != nil {
		email := domain.NormalizeEmail(*patch.Email)
		if email == "" {
			return nil, fmt.Errorf("%w: email must not be empty", domain.ErrInvalidInput)
		}
		if email != a.Email {
			if err := s.ensureEmailFree(ctx, email); err != nil {
				return nil, err
			}
			a.Email = email
		}
	}
	if patch.Password != nil && *patch.Password != "" {
		hash, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to hash password")
			return nil, fmt.Errorf("hash password: %w", err)
		}
		a.PasswordHash = hash
	}
	if patch.Role != nil {
		role, ok := domain.ParseRole(string(*patch.Role))
		if !ok {
			return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, *patch.Role)
		}
		a.Role = role
	}
	if patch.Status != nil {
		status, ok := domain.ParseStatus(string(*patch.Status))
		if !ok {
			return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, *patch.Status)
		}
		a.Status = status
	}

	a.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, a); err != nil {
		logFailure(s.log, err, "failed to update account")
		return nil, err
	}
	return a, nil
}

func (s *AccountService) List(ctx context.Context, q ports.AccountQuery) (*ports.Page[*domain.Account], error) {
	page, limit := ports.NormalizePage(q.Page, q.Limit)
	items, total, err := s.repo.List(ctx, ports.AccountFilter{
		Search: strings.TrimSpace(q.Search),
		Role:   q.Role,
		Status: q.Status,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		logFailure(s.log, err, "failed to list accounts")
		return nil, err
	}
	return ports.NewPage(items, total, page, limit), nil
}

func (s *AccountService) ensureHandleFree(ctx context.Context, handle string) error {
	taken, err := s.ExistsByHandle(ctx, handle)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrHandleTaken
	}
	return nil
}

func (s *AccountService) ensureEmailFree(ctx context.Context, email string) error {
	taken, err := s.ExistsByEmail(ctx, email)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrEmailTaken
	}
	return nil
}
