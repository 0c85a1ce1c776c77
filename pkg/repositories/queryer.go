// Package repositories holds the PostgreSQL data access layer. Every
// repository reads its connection from the tenant scope in the context.
// Queries match organization_id explicitly and row-level security backs
// that filter on the same connection.
package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/processx-inc/processx-engine/pkg/database"
)

// tenantFilter is the organization bound to scope, passed to the
// `($N::uuid IS NULL OR organization_id = $N)` predicate. It is nil only for
// connections acquired WithoutTenant.
func tenantFilter(scope *database.TenantScope) *uuid.UUID {
	if scope.OrganizationID == uuid.Nil {
		return nil
	}
	org := scope.OrganizationID
	return &org
}

// queryer is the subset shared by *pgxpool.Conn and pgx.Tx.
type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// isUniqueViolation reports whether err is PostgreSQL error 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// marshalJSONB encodes v for a JSONB column. A nil value is stored as SQL NULL.
func marshalJSONB(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal json column: %w", err)
	}
	if string(data) == "null" {
		return nil, nil
	}
	return data, nil
}

// unmarshalJSONB decodes a JSONB column into dest. NULL leaves dest untouched.
func unmarshalJSONB(data []byte, dest any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal json column: %w", err)
	}
	return nil
}
