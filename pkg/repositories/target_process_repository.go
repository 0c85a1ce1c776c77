package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/processx-inc/processx-engine/pkg/database"
	"github.com/processx-inc/processx-engine/pkg/models"
)

// TargetProcessRepository provides access to generated TO-BE proposals.
type TargetProcessRepository interface {
	// ListByProcess returns proposals for a process, newest first.
	ListByProcess(ctx context.Context, processID uuid.UUID) ([]*models.TargetProcess, error)
}

type targetProcessRepository struct{}

// NewTargetProcessRepository creates a new target process repository.
func NewTargetProcessRepository() TargetProcessRepository {
	return &targetProcessRepository{}
}

var _ TargetProcessRepository = (*targetProcessRepository)(nil)

func (r *targetProcessRepository) ListByProcess(ctx context.Context, processID uuid.UUID) ([]*models.TargetProcess, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		SELECT id, organization_id, process_id, analysis_id, name, generated_steps,
		       generated_connections, improvement_summary, status, created_at
		FROM target_processes
		WHERE process_id = $1 AND ($2::uuid IS NULL OR organization_id = $2)
		ORDER BY created_at DESC`

	rows, err := scope.Conn.Query(ctx, query, processID, tenantFilter(scope))
	if err != nil {
		return nil, fmt.Errorf("failed to list target processes: %w", err)
	}
	defer rows.Close()

	targets := make([]*models.TargetProcess, 0)
	for rows.Next() {
		tp, err := scanTargetProcess(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, tp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating target processes: %w", err)
	}
	return targets, nil
}

func scanTargetProcess(row pgx.Row) (*models.TargetProcess, error) {
	var tp models.TargetProcess
	var steps, connections []byte
	err := row.Scan(
		&tp.ID, &tp.OrganizationID, &tp.ProcessID, &tp.AnalysisID, &tp.Name,
		&steps, &connections, &tp.ImprovementSummary, &tp.Status, &tp.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan target process: %w", err)
	}
	if err := unmarshalJSONB(steps, &tp.GeneratedSteps); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(connections, &tp.GeneratedConnections); err != nil {
		return nil, err
	}
	if tp.GeneratedSteps == nil {
		tp.GeneratedSteps = []models.GeneratedStep{}
	}
	if tp.GeneratedConnections == nil {
		tp.GeneratedConnections = []models.GeneratedConnection{}
	}
	return &tp, nil
}

func insertTargetProcess(ctx context.Context, q queryer, tp *models.TargetProcess) error {
	steps, err := marshalJSONB(nonNilSlice(tp.GeneratedSteps))
	if err != nil {
		return err
	}
	connections, err := marshalJSONB(nonNilSlice(tp.GeneratedConnections))
	if err != nil {
		return err
	}

	query := `
		INSERT INTO target_processes (id, organization_id, process_id, analysis_id, name,
			generated_steps, generated_connections, improvement_summary, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = q.Exec(ctx, query,
		tp.ID, tp.OrganizationID, tp.ProcessID, tp.AnalysisID, tp.Name,
		steps, connections, tp.ImprovementSummary, tp.Status, tp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert target process: %w", err)
	}
	return nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
