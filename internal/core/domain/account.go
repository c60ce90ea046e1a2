package domain

import (
	"strings"
	"time"
)

// Role is the authorization level carried by an account and its tokens.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleReader Role = "READER"
)

// DefaultRole is assigned when nothing else decides.
const DefaultRole = RoleReader

// ParseRole matches s against the known roles, ignoring case and the
// legacy "ROLE_" prefix. ok is false for anything unrecognised.
func ParseRole(s string) (Role, bool) {
	v := strings.ToUpper(strings.TrimSpace(s))
	v = strings.TrimPrefix(v, "ROLE_")
	switch Role(v) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleReader:
		return RoleReader, true
	}
	return "", false
}

func (r Role) Privileged() bool { return r == RoleAdmin }

// Status tells whether an account may sign in.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusActive:
		return StatusActive, true
	case StatusInactive:
		return StatusInactive, true
	}
	return "", false
}

// Account is a local identity. Handle and Email are unique system-wide.
type Account struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Handle       string    `json:"handle"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Status       Status    `json:"status"`
	Bootstrap    bool      `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (a *Account) Active() bool { return a.Status == StatusActive }

// NormalizeEmail lower-cases and trims an email so lookups are stable.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
