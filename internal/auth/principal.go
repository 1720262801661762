package auth

import "context"

// Principal is the authenticated identity attached to a request after
// successful verification.
type Principal struct {
	// ID is the stable subject identifier: the username for session
	// principals, the provider-assigned subject for bearer principals.
	ID string

	// Role is the verified role, if any. Session principals have no role.
	Role string

	// SessionID is the external session identifier from a bearer token,
	// when present.
	SessionID string
}

// IsAdmin reports whether the principal holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

type principalContextKey struct{}

// ContextWithPrincipal returns a context carrying the principal.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from the context, if present.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*Principal)
	return p, ok
}
