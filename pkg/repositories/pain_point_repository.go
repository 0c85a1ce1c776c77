package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/processx-inc/processx-engine/pkg/database"
	"github.com/processx-inc/processx-engine/pkg/models"
)

// PainPointRepository provides access to pain points.
type PainPointRepository interface {
	// ListByProcess returns every pain point of the process, user-entered and
	// AI-detected, oldest first.
	ListByProcess(ctx context.Context, processID uuid.UUID) ([]*models.PainPoint, error)
}

type painPointRepository struct{}

// NewPainPointRepository creates a new pain point repository.
func NewPainPointRepository() PainPointRepository {
	return &painPointRepository{}
}

var _ PainPointRepository = (*painPointRepository)(nil)

const painPointColumns = `id, organization_id, process_id, process_step_id, analysis_id, category, severity,
	title, description, estimated_cost, estimated_time, frequency, is_ai_detected, created_at`

func (r *painPointRepository) ListByProcess(ctx context.Context, processID uuid.UUID) ([]*models.PainPoint, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `SELECT ` + painPointColumns + `
		FROM pain_points
		WHERE process_id = $1 AND ($2::uuid IS NULL OR organization_id = $2)
		ORDER BY created_at, id`

	rows, err := scope.Conn.Query(ctx, query, processID, tenantFilter(scope))
	if err != nil {
		return nil, fmt.Errorf("failed to list pain points: %w", err)
	}
	defer rows.Close()

	painPoints := make([]*models.PainPoint, 0)
	for rows.Next() {
		pp, err := scanPainPoint(rows)
		if err != nil {
			return nil, err
		}
		painPoints = append(painPoints, pp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pain points: %w", err)
	}
	return painPoints, nil
}

func scanPainPoint(row pgx.Row) (*models.PainPoint, error) {
	var pp models.PainPoint
	err := row.Scan(
		&pp.ID, &pp.OrganizationID, &pp.ProcessID, &pp.ProcessStepID, &pp.AnalysisID,
		&pp.Category, &pp.Severity, &pp.Title, &pp.Description,
		&pp.EstimatedCost, &pp.EstimatedTime, &pp.Frequency, &pp.IsAIDetected, &pp.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan pain point: %w", err)
	}
	return &pp, nil
}

func insertPainPoint(ctx context.Context, q queryer, pp *models.PainPoint) error {
	query := `
		INSERT INTO pain_points (id, organization_id, process_id, process_step_id, analysis_id,
			category, severity, title, description, estimated_cost, estimated_time, frequency,
			is_ai_detected, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := q.Exec(ctx, query,
		pp.ID, pp.OrganizationID, pp.ProcessID, pp.ProcessStepID, pp.AnalysisID,
		pp.Category, pp.Severity, pp.Title, pp.Description,
		pp.EstimatedCost, pp.EstimatedTime, pp.Frequency, pp.IsAIDetected, pp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert pain point: %w", err)
	}
	return nil
}
