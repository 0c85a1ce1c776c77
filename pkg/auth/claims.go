// Package auth validates bearer JWTs and exposes the caller's organization.
// Tokens are verified against JWKS endpoints of whitelisted issuers.
package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// TokenKey is the context key for storing the raw JWT token string.
	TokenKey contextKey = "token"
)

// Claims represents the JWT claims accepted by processx-engine.
// OrganizationID scopes every request to one tenant.
type Claims struct {
	jwt.RegisteredClaims
	OrganizationID string   `json:"oid,omitempty"`   // Organization UUID
	Email          string   `json:"email,omitempty"` // User email address
	Roles          []string `json:"roles,omitempty"` // User roles within the organization
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetToken retrieves the raw JWT token string from the request context.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// withClaims stores claims and token in ctx.
func withClaims(ctx context.Context, claims *Claims, token string) context.Context {
	ctx = context.WithValue(ctx, ClaimsKey, claims)
	return context.WithValue(ctx, TokenKey, token)
}
