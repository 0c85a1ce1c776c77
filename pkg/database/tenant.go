package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TenantScope wraps a connection bound to one organization.
// The connection has app.current_organization_id set for RLS policy evaluation.
type TenantScope struct {
	Conn           *pgxpool.Conn
	OrganizationID uuid.UUID
}

// Close resets the organization setting and releases the connection to the pool.
// This MUST be called or the tenant setting leaks to the next borrower.
func (s *TenantScope) Close() {
	if s.Conn == nil {
		return
	}
	_, _ = s.Conn.Exec(context.Background(), "RESET app.current_organization_id")
	s.Conn.Release()
}

// WithTenant acquires a connection scoped to the given organization.
// The returned TenantScope MUST be closed with defer scope.Close().
func (db *DB) WithTenant(ctx context.Context, organizationID uuid.UUID) (*TenantScope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	_, err = conn.Exec(ctx, "SELECT set_config('app.current_organization_id', $1, false)", organizationID.String())
	if err != nil {
		conn.Release()
		return nil, err
	}

	return &TenantScope{Conn: conn, OrganizationID: organizationID}, nil
}

// WithoutTenant acquires a connection with no organization set.
// RLS policies let such connections see every row; use it only for
// cross-tenant maintenance such as the analysis recovery sweep.
// The returned TenantScope MUST be closed with defer scope.Close().
func (db *DB) WithoutTenant(ctx context.Context) (*TenantScope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &TenantScope{Conn: conn}, nil
}
