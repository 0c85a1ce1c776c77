package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/processx-inc/processx-engine/pkg/apperrors"
	"github.com/processx-inc/processx-engine/pkg/database"
	"github.com/processx-inc/processx-engine/pkg/models"
)

// ProcessRepository reads process graphs. Processes are authored elsewhere;
// the engine only needs read access.
type ProcessRepository interface {
	// GetByID returns the process row. Returns apperrors.ErrNotFound when the
	// process does not exist or belongs to another organization.
	GetByID(ctx context.Context, processID uuid.UUID) (*models.Process, error)

	// GetGraph returns the process with its steps ordered by sort_order and its connections.
	GetGraph(ctx context.Context, processID uuid.UUID) (*models.ProcessGraph, error)

	// Exists reports whether the process is visible to the current tenant.
	Exists(ctx context.Context, processID uuid.UUID) (bool, error)
}

type processRepository struct{}

// NewProcessRepository creates a new process repository.
func NewProcessRepository() ProcessRepository {
	return &processRepository{}
}

var _ ProcessRepository = (*processRepository)(nil)

func (r *processRepository) GetByID(ctx context.Context, processID uuid.UUID) (*models.Process, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}
	return getProcess(ctx, scope.Conn, processID, tenantFilter(scope))
}

func getProcess(ctx context.Context, q queryer, processID uuid.UUID, orgID *uuid.UUID) (*models.Process, error) {
	query := `
		SELECT id, organization_id, name, description, type, status, version, created_at, updated_at
		FROM processes
		WHERE id = $1 AND ($2::uuid IS NULL OR organization_id = $2)`

	var p models.Process
	err := q.QueryRow(ctx, query, processID, orgID).Scan(
		&p.ID, &p.OrganizationID, &p.Name, &p.Description, &p.Type,
		&p.Status, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get process: %w", err)
	}
	return &p, nil
}

func (r *processRepository) GetGraph(ctx context.Context, processID uuid.UUID) (*models.ProcessGraph, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	// Read the three tables from one snapshot so a concurrent edit cannot
	// produce connections to steps we did not load.
	tx, err := scope.Conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // read-only

	process, err := getProcess(ctx, tx, processID, tenantFilter(scope))
	if err != nil {
		return nil, err
	}

	steps, err := listSteps(ctx, tx, processID)
	if err != nil {
		return nil, err
	}

	connections, err := listConnections(ctx, tx, processID)
	if err != nil {
		return nil, err
	}

	return &models.ProcessGraph{
		Process:     process,
		Steps:       steps,
		Connections: connections,
	}, nil
}

func listSteps(ctx context.Context, q queryer, processID uuid.UUID) ([]*models.ProcessStep, error) {
	query := `
		SELECT id, process_id, name, description, type, duration, position_x, position_y,
		       responsible_role, systems, sort_order
		FROM process_steps
		WHERE process_id = $1
		ORDER BY sort_order, created_at`

	rows, err := q.Query(ctx, query, processID)
	if err != nil {
		return nil, fmt.Errorf("failed to list process steps: %w", err)
	}
	defer rows.Close()

	steps := make([]*models.ProcessStep, 0)
	for rows.Next() {
		var s models.ProcessStep
		if err := rows.Scan(
			&s.ID, &s.ProcessID, &s.Name, &s.Description, &s.Type, &s.Duration,
			&s.PositionX, &s.PositionY, &s.ResponsibleRole, &s.Systems, &s.SortOrder,
		); err != nil {
			return nil, fmt.Errorf("failed to scan process step: %w", err)
		}
		if s.Systems == nil {
			s.Systems = []string{}
		}
		steps = append(steps, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating process steps: %w", err)
	}
	return steps, nil
}

func listConnections(ctx context.Context, q queryer, processID uuid.UUID) ([]*models.ProcessConnection, error) {
	query := `
		SELECT id, process_id, source_step_id, target_step_id, label, type
		FROM process_connections
		WHERE process_id = $1
		ORDER BY created_at, id`

	rows, err := q.Query(ctx, query, processID)
	if err != nil {
		return nil, fmt.Errorf("failed to list process connections: %w", err)
	}
	defer rows.Close()

	connections := make([]*models.ProcessConnection, 0)
	for rows.Next() {
		var c models.ProcessConnection
		if err := rows.Scan(&c.ID, &c.ProcessID, &c.SourceStepID, &c.TargetStepID, &c.Label, &c.Type); err != nil {
			return nil, fmt.Errorf("failed to scan process connection: %w", err)
		}
		connections = append(connections, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating process connections: %w", err)
	}
	return connections, nil
}

func (r *processRepository) Exists(ctx context.Context, processID uuid.UUID) (bool, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return false, fmt.Errorf("no tenant scope in context")
	}

	var exists bool
	err := scope.Conn.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM processes WHERE id = $1 AND ($2::uuid IS NULL OR organization_id = $2))`,
		processID, tenantFilter(scope)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check process: %w", err)
	}
	return exists, nil
}
