package domain

import "context"

// Principal is the authenticated caller as carried by a session token.
type Principal struct {
	Handle string
	Role   Role
}

func (p Principal) IsAdmin() bool { return p.Role.Privileged() }

type principalKey struct{}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller stored by WithPrincipal.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
