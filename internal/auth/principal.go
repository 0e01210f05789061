// Package auth issues and verifies session tokens and carries the verified
// identity through a request.
package auth

import (
	"context"

	"blogcms/internal/models"
)

// Principal is the identity extracted from a verified session token.
type Principal struct {
	AccountID uint
	Username  string
	Role      string
}

// IsAdmin reports whether the principal may call admin operations.
func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored in ctx, if any.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
