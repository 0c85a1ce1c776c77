package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/processx-inc/processx-engine/pkg/database"
)

// TenantContextFunc acquires a connection scoped to one organization.
// Returns the scoped context, a cleanup function (MUST be called), and any error.
type TenantContextFunc func(ctx context.Context, organizationID uuid.UUID) (context.Context, func(), error)

// SystemContextFunc acquires a connection that sees every organization's rows.
// Only background maintenance such as the recovery sweep uses it.
type SystemContextFunc func(ctx context.Context) (context.Context, func(), error)

// NewTenantContextFunc creates a TenantContextFunc that uses the given database.
func NewTenantContextFunc(db *database.DB) TenantContextFunc {
	return func(ctx context.Context, organizationID uuid.UUID) (context.Context, func(), error) {
		scope, err := db.WithTenant(ctx, organizationID)
		if err != nil {
			return nil, nil, err
		}
		return database.SetTenantScope(ctx, scope), scope.Close, nil
	}
}

// NewSystemContextFunc creates a SystemContextFunc that uses the given database.
func NewSystemContextFunc(db *database.DB) SystemContextFunc {
	return func(ctx context.Context) (context.Context, func(), error) {
		scope, err := db.WithoutTenant(ctx)
		if err != nil {
			return nil, nil, err
		}
		return database.SetTenantScope(ctx, scope), scope.Close, nil
	}
}
