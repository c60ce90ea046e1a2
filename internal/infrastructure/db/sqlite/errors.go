package sqlite

import (
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/MrxHuang/alexandriaBackend/internal/core/domain"
)

// constraintErrors maps the column named in a UNIQUE violation to its
// domain error.
var constraintErrors = map[string]error{
	"accounts.handle":    domain.ErrHandleTaken,
	"accounts.email":     domain.ErrEmailTaken,
	"accounts.bootstrap": domain.ErrBootstrapClaimed,
	"items.isbn":         domain.ErrIsbnTaken,
	"loans.item_id":      domain.ErrItemUnavailable,
}

// uniqueViolation returns the domain error for a unique-constraint failure,
// or nil if err is something else.
func uniqueViolation(err error) error {
	var se sqlite3.Error
	if !errors.As(err, &se) || se.ExtendedCode != sqlite3.ErrConstraintUnique {
		return nil
	}
	msg := err.Error()
	for column, target := range constraintErrors {
		if strings.Contains(msg, column) {
			return target
		}
	}
	return nil
}

func foreignKeyViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
