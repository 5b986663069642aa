package auth

import "context"

// Principal is the authenticated identity attached to a request. It is
// constructed fresh from a validated token, immutable for the request's
// lifetime, and never persisted server-side.
type Principal struct {
	UserID       string
	Username     string
	Role         Role
	EmployeeID   string // empty when the account has no linked employee
	DepartmentID string
}

// NewPrincipal builds a Principal from verified access token claims.
func NewPrincipal(claims *Claims) Principal {
	if claims == nil {
		return Principal{}
	}
	return Principal{
		UserID:       claims.UserID,
		Username:     claims.Subject,
		Role:         claims.Role,
		EmployeeID:   claims.EmployeeID,
		DepartmentID: claims.DepartmentID,
	}
}

// HasRole reports whether the principal's role is one of the given roles.
func (p Principal) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

type principalContextKey struct{}

// ContextWithPrincipal attaches the authenticated principal to the context.
func ContextWithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, &principal)
}

// PrincipalFromContext extracts the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	v, ok := ctx.Value(principalContextKey{}).(*Principal)
	if !ok || v == nil {
		return Principal{}, false
	}
	return *v, true
}
