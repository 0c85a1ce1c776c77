package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// GetUserIDFromContext extracts the user ID (subject) from JWT claims in the context.
// Returns empty string if not authenticated.
func GetUserIDFromContext(ctx context.Context) string {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return ""
	}
	return claims.Subject
}

// GetOrganizationIDFromContext extracts the organization ID from JWT claims.
// Returns uuid.Nil if not authenticated or the claim is missing or malformed.
func GetOrganizationIDFromContext(ctx context.Context) uuid.UUID {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil || claims.OrganizationID == "" {
		return uuid.Nil
	}

	organizationID, err := uuid.Parse(claims.OrganizationID)
	if err != nil {
		return uuid.Nil
	}
	return organizationID
}

// RequireOrganizationIDFromContext is GetOrganizationIDFromContext with an error
// when no organization is present.
func RequireOrganizationIDFromContext(ctx context.Context) (uuid.UUID, error) {
	organizationID := GetOrganizationIDFromContext(ctx)
	if organizationID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("organization ID not found in context")
	}
	return organizationID, nil
}
