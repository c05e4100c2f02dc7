package shared

import "context"

// Identity describes the authenticated caller attached to a request.
// MasqueradeToken is set when the bearer token was issued through a
// masquerade login link and binds the request back to that grant.
type Identity struct {
	UserID          int64
	Token           string
	MasqueradeToken string
}

type identityContextKey struct{}

// ContextWithIdentity stores the caller identity in context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the caller identity from context.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}
