package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

var identityCtxKey = &contextKey{"identity"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithIdentityContext sets the IdentitySnapshot in the given context
func WithIdentityContext(r context.Context, identity *IdentitySnapshot) context.Context {
	return context.WithValue(r, identityCtxKey, identity)
}

// IdentityFromContext finds the identity snapshot from the context.
func IdentityFromContext(ctx context.Context) (*IdentitySnapshot, bool) {
	raw, ok := ctx.Value(identityCtxKey).(*IdentitySnapshot)
	return raw, ok
}

// WithClaimsContext sets the JWTClaims in the given context
func WithClaimsContext(r context.Context, claims *JWTClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// ClaimsFromContext extracts the JWTClaims from the standard context
func ClaimsFromContext(ctx context.Context) (*JWTClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*JWTClaims)
	return raw, ok
}

// GetRouterClaims extracts the JWTClaims the protected-route middleware
// stored in the router context
func GetRouterClaims(ctx router.Context, key string) (*JWTClaims, bool) {
	if key == "" {
		key = DefaultClaimsContextKey
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(*JWTClaims)
	return claims, ok
}
