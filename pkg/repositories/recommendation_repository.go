package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/processx-inc/processx-engine/pkg/apperrors"
	"github.com/processx-inc/processx-engine/pkg/database"
	"github.com/processx-inc/processx-engine/pkg/models"
)

// RecommendationRepository provides access to process recommendations.
type RecommendationRepository interface {
	// ListByProcess returns recommendations for a process, highest priority first.
	// A non-empty status filters to that review state.
	ListByProcess(ctx context.Context, processID uuid.UUID, status models.RecommendationStatus) ([]*models.ProcessRecommendation, error)

	GetByID(ctx context.Context, id uuid.UUID) (*models.ProcessRecommendation, error)

	// UpdateStatus moves a recommendation from one review state to another.
	// Returns apperrors.ErrInvalidTransition when the row is no longer in from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.RecommendationStatus) (*models.ProcessRecommendation, error)
}

type recommendationRepository struct{}

// NewRecommendationRepository creates a new recommendation repository.
func NewRecommendationRepository() RecommendationRepository {
	return &recommendationRepository{}
}

var _ RecommendationRepository = (*recommendationRepository)(nil)

const recommendationColumns = `id, organization_id, process_id, analysis_id, category, priority, title,
	description, implementation, metrics, status, created_at, updated_at`

// priorityOrder sorts CRITICAL first.
const priorityOrder = `CASE priority WHEN 'CRITICAL' THEN 0 WHEN 'HIGH' THEN 1 WHEN 'MEDIUM' THEN 2 ELSE 3 END`

func (r *recommendationRepository) ListByProcess(ctx context.Context, processID uuid.UUID, status models.RecommendationStatus) ([]*models.ProcessRecommendation, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `SELECT ` + recommendationColumns + `
		FROM process_recommendations
		WHERE process_id = $1 AND ($2 = '' OR status = $2) AND ($3::uuid IS NULL OR organization_id = $3)
		ORDER BY ` + priorityOrder + `, created_at`

	rows, err := scope.Conn.Query(ctx, query, processID, string(status), tenantFilter(scope))
	if err != nil {
		return nil, fmt.Errorf("failed to list recommendations: %w", err)
	}
	defer rows.Close()

	recs := make([]*models.ProcessRecommendation, 0)
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recommendations: %w", err)
	}
	return recs, nil
}

func (r *recommendationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ProcessRecommendation, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `SELECT ` + recommendationColumns + `
		FROM process_recommendations
		WHERE id = $1 AND ($2::uuid IS NULL OR organization_id = $2)`
	rec, err := scanRecommendation(scope.Conn.QueryRow(ctx, query, id, tenantFilter(scope)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (r *recommendationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.RecommendationStatus) (*models.ProcessRecommendation, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		UPDATE process_recommendations
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2 AND ($5::uuid IS NULL OR organization_id = $5)
		RETURNING ` + recommendationColumns

	rec, err := scanRecommendation(scope.Conn.QueryRow(ctx, query, id, from, to, time.Now(), tenantFilter(scope)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrInvalidTransition
		}
		return nil, err
	}
	return rec, nil
}

func scanRecommendation(row pgx.Row) (*models.ProcessRecommendation, error) {
	var rec models.ProcessRecommendation
	var implementation, metrics []byte
	err := row.Scan(
		&rec.ID, &rec.OrganizationID, &rec.ProcessID, &rec.AnalysisID, &rec.Category,
		&rec.Priority, &rec.Title, &rec.Description, &implementation, &metrics,
		&rec.Status, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan recommendation: %w", err)
	}
	if err := unmarshalJSONB(implementation, &rec.Implementation); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(metrics, &rec.Metrics); err != nil {
		return nil, err
	}
	return &rec, nil
}

func insertRecommendation(ctx context.Context, q queryer, rec *models.ProcessRecommendation) error {
	implementation, err := marshalJSONB(rec.Implementation)
	if err != nil {
		return err
	}
	metrics, err := marshalJSONB(rec.Metrics)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO process_recommendations (id, organization_id, process_id, analysis_id, category,
			priority, title, description, implementation, metrics, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = q.Exec(ctx, query,
		rec.ID, rec.OrganizationID, rec.ProcessID, rec.AnalysisID, rec.Category,
		rec.Priority, rec.Title, rec.Description, implementation, metrics,
		rec.Status, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert recommendation: %w", err)
	}
	return nil
}
