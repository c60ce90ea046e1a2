package domain

import (
	"errors"
	"fmt"
)

// Taxonomy roots. Entity-specific errors wrap one of these so callers can
// match either the precise cause or the broad category with errors.Is.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

var (
	ErrAccountNotFound = fmt.Errorf("account %w", ErrNotFound)
	ErrAuthorNotFound  = fmt.Errorf("author %w", ErrNotFound)
	ErrItemNotFound    = fmt.Errorf("catalog item %w", ErrNotFound)
	ErrLoanNotFound    = fmt.Errorf("loan %w", ErrNotFound)

	ErrHandleTaken = fmt.Errorf("handle %w", ErrDuplicate)
	ErrEmailTaken  = fmt.Errorf("email %w", ErrDuplicate)
	ErrIsbnTaken   = fmt.Errorf("isbn %w", ErrDuplicate)

	// ErrBootstrapClaimed is returned by the store when a second account
	// tries to take the bootstrap-admin slot.
	ErrBootstrapClaimed = fmt.Errorf("bootstrap admin %w", ErrDuplicate)
)

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrProviderUnavailable = errors.New("identity provider unavailable")
var ErrRoleChangeForbidden = errors.New("role change not allowed through login")
var ErrAccountInactive = errors.New("account is inactive")
var ErrForbidden = errors.New("access forbidden")
var ErrInvalidInput = errors.New("invalid input")

var ErrItemUnavailable = errors.New("item is already on loan")
var ErrLoanLimitExceeded = fmt.Errorf("borrower already holds %d open loans", MaxOpenLoansPerAccount)
var ErrAlreadyReturned = errors.New("loan already returned")
