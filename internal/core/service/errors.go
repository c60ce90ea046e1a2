package service

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
)

var expectedErrors = []error{
	domain.ErrNotFound,
	domain.ErrDuplicate,
	domain.ErrInvalidInput,
	domain.ErrInvalidCredentials,
	domain.ErrProviderUnavailable,
	domain.ErrRoleChangeForbidden,
	domain.ErrAccountInactive,
	domain.ErrForbidden,
	domain.ErrItemUnavailable,
	domain.ErrLoanLimitExceeded,
	domain.ErrAlreadyReturned,
}

// isExpected reports whether err is a domain outcome rather than an
// infrastructure failure.
func isExpected(err error) bool {
	for _, target := range expectedErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// logFailure records infrastructure failures once, at the service boundary.
// Domain outcomes are returned to the caller without logging.
func logFailure(log zerolog.Logger, err error, msg string) {
	if err == nil || isExpected(err) {
		return
	}
	log.Error().Err(err).Msg(msg)
}
