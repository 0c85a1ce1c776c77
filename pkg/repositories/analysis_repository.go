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

// AnalysisRepository stores analysis runs. Every status change is a
// conditional update on the expected current status, so transitions only
// move forward and terminal rows stay terminal.
type AnalysisRepository interface {
	// Create inserts a PENDING analysis. Returns apperrors.ErrConflict when an
	// active analysis of the same type already exists for the process.
	Create(ctx context.Context, analysis *models.AIAnalysis) error

	// GetByID returns apperrors.ErrNotFound when the analysis is not visible.
	GetByID(ctx context.Context, id uuid.UUID) (*models.AIAnalysis, error)

	// FindActive returns the PENDING or IN_PROGRESS analysis of the given type, or nil.
	FindActive(ctx context.Context, processID uuid.UUID, analysisType models.AnalysisType) (*models.AIAnalysis, error)

	// ListByProcess returns the process's analyses, newest first.
	ListByProcess(ctx context.Context, processID uuid.UUID) ([]*models.AIAnalysis, error)

	// Claim moves a PENDING analysis to IN_PROGRESS for ownerID, or takes over an
	// IN_PROGRESS one whose heartbeat is older than staleBefore. Attempts is
	// incremented. Returns apperrors.ErrConflict when the row cannot be claimed.
	Claim(ctx context.Context, id, ownerID uuid.UUID, staleBefore time.Time) (*models.AIAnalysis, error)

	// Heartbeat refreshes the owner's lease. Returns apperrors.ErrConflict when
	// the owner no longer holds the analysis.
	Heartbeat(ctx context.Context, id, ownerID uuid.UUID) error

	// CompleteAnalysis commits the results and every derived row in one
	// transaction. Returns apperrors.ErrInvalidTransition when the analysis is
	// not IN_PROGRESS under ownerID.
	CompleteAnalysis(ctx context.Context, id, ownerID uuid.UUID, results *models.AnalysisResults) error

	// Fail marks a non-terminal analysis FAILED. When ownerID is non-nil the
	// update only applies while that owner holds the row.
	Fail(ctx context.Context, id uuid.UUID, ownerID *uuid.UUID, kind models.AnalysisErrorKind, message string) error

	// ListRecoverable returns PENDING analyses and IN_PROGRESS ones with a
	// heartbeat older than staleBefore, oldest first. Intended for a scope
	// without a tenant so every organization's rows are visible.
	ListRecoverable(ctx context.Context, staleBefore time.Time, limit int) ([]models.RecoverableAnalysis, error)
}

type analysisRepository struct{}

// NewAnalysisRepository creates a new analysis repository.
func NewAnalysisRepository() AnalysisRepository {
	return &analysisRepository{}
}

var _ AnalysisRepository = (*analysisRepository)(nil)

const analysisColumns = `id, organization_id, process_id, analysis_type, status, understanding,
	detected_pain_points, recommendations, generated_process, provider, model, error_message,
	error_kind, owner_id, last_heartbeat, attempts, created_at, started_at, completed_at`

func (r *analysisRepository) Create(ctx context.Context, analysis *models.AIAnalysis) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	if analysis.ID == uuid.Nil {
		analysis.ID = uuid.New()
	}
	analysis.Status = models.AnalysisStatusPending
	analysis.CreatedAt = time.Now()

	query := `
		INSERT INTO ai_analyses (id, organization_id, process_id, analysis_type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := scope.Conn.Exec(ctx, query,
		analysis.ID, analysis.OrganizationID, analysis.ProcessID,
		analysis.AnalysisType, analysis.Status, analysis.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create analysis: %w", err)
	}
	return nil
}

func (r *analysisRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AIAnalysis, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `SELECT ` + analysisColumns + `
		FROM ai_analyses
		WHERE id = $1 AND ($2::uuid IS NULL OR organization_id = $2)`
	analysis, err := scanAnalysis(scope.Conn.QueryRow(ctx, query, id, tenantFilter(scope)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return analysis, nil
}

func (r *analysisRepository) FindActive(ctx context.Context, processID uuid.UUID, analysisType models.AnalysisType) (*models.AIAnalysis, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `SELECT ` + analysisColumns + `
		FROM ai_analyses
		WHERE process_id = $1 AND analysis_type = $2 AND status IN ('PENDING', 'IN_PROGRESS')
		  AND ($3::uuid IS NULL OR organization_id = $3)`

	analysis, err := scanAnalysis(scope.Conn.QueryRow(ctx, query, processID, analysisType, tenantFilter(scope)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return analysis, nil
}

func (r *analysisRepository) ListByProcess(ctx context.Context, processID uuid.UUID) ([]*models.AIAnalysis, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `SELECT ` + analysisColumns + `
		FROM ai_analyses
		WHERE process_id = $1 AND ($2::uuid IS NULL OR organization_id = $2)
		ORDER BY created_at DESC, id`

	rows, err := scope.Conn.Query(ctx, query, processID, tenantFilter(scope))
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	analyses := make([]*models.AIAnalysis, 0)
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analyses: %w", err)
	}
	return analyses, nil
}

func (r *analysisRepository) Claim(ctx context.Context, id, ownerID uuid.UUID, staleBefore time.Time) (*models.AIAnalysis, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `
		UPDATE ai_analyses
		SET status = 'IN_PROGRESS',
		    owner_id = $2,
		    last_heartbeat = $4,
		    started_at = COALESCE(started_at, $4),
		    attempts = attempts + 1
		WHERE id = $1 AND ($5::uuid IS NULL OR organization_id = $5)
		  AND (status = 'PENDING'
		       OR (status = 'IN_PROGRESS' AND (last_heartbeat IS NULL OR last_heartbeat < $3)))
		RETURNING ` + analysisColumns

	analysis, err := scanAnalysis(scope.Conn.QueryRow(ctx, query, id, ownerID, staleBefore, time.Now(), tenantFilter(scope)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrConflict
		}
		return nil, err
	}
	return analysis, nil
}

func (r *analysisRepository) Heartbeat(ctx context.Context, id, ownerID uuid.UUID) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	tag, err := scope.Conn.Exec(ctx, `
		UPDATE ai_analyses SET last_heartbeat = $3
		WHERE id = $1 AND owner_id = $2 AND status = 'IN_PROGRESS' AND ($4::uuid IS NULL OR organization_id = $4)`,
		id, ownerID, time.Now(), tenantFilter(scope))
	if err != nil {
		return fmt.Errorf("failed to record heartbeat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

func (r *analysisRepository) CompleteAnalysis(ctx context.Context, id, ownerID uuid.UUID, results *models.AnalysisResults) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	understanding, err := marshalJSONB(results.Understanding)
	if err != nil {
		return err
	}
	detected, err := marshalJSONB(results.DetectedPainPoints)
	if err != nil {
		return err
	}
	recommendations, err := marshalJSONB(results.Recommendations)
	if err != nil {
		return err
	}
	generated, err := marshalJSONB(results.GeneratedProcess)
	if err != nil {
		return err
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	tag, err := tx.Exec(ctx, `
		UPDATE ai_analyses
		SET status = 'COMPLETED',
		    understanding = $3,
		    detected_pain_points = $4,
		    recommendations = $5,
		    generated_process = $6,
		    provider = $7,
		    model = $8,
		    error_message = NULL,
		    error_kind = NULL,
		    completed_at = $9
		WHERE id = $1 AND owner_id = $2 AND status = 'IN_PROGRESS' AND ($10::uuid IS NULL OR organization_id = $10)`,
		id, ownerID, understanding, detected, recommendations, generated,
		results.Provider, results.Model, time.Now(), tenantFilter(scope))
	if err != nil {
		return fmt.Errorf("failed to complete analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrInvalidTransition
	}

	for _, pp := range results.PainPointRows {
		if err := insertPainPoint(ctx, tx, pp); err != nil {
			return err
		}
	}
	for _, rec := range results.RecommendationRows {
		if err := insertRecommendation(ctx, tx, rec); err != nil {
			return err
		}
	}
	if results.TargetProcessRow != nil {
		if err := insertTargetProcess(ctx, tx, results.TargetProcessRow); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *analysisRepository) Fail(ctx context.Context, id uuid.UUID, ownerID *uuid.UUID, kind models.AnalysisErrorKind, message string) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	tag, err := scope.Conn.Exec(ctx, `
		UPDATE ai_analyses
		SET status = 'FAILED', error_kind = $3, error_message = $4, completed_at = $5
		WHERE id = $1
		  AND status IN ('PENDING', 'IN_PROGRESS')
		  AND ($2::uuid IS NULL OR owner_id = $2)
		  AND ($6::uuid IS NULL OR organization_id = $6)`,
		id, ownerID, kind, message, time.Now(), tenantFilter(scope))
	if err != nil {
		return fmt.Errorf("failed to mark analysis failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrInvalidTransition
	}
	return nil
}

func (r *analysisRepository) ListRecoverable(ctx context.Context, staleBefore time.Time, limit int) ([]models.RecoverableAnalysis, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	rows, err := scope.Conn.Query(ctx, `
		SELECT id, organization_id, status, attempts
		FROM ai_analyses
		WHERE status = 'PENDING'
		   OR (status = 'IN_PROGRESS' AND (last_heartbeat IS NULL OR last_heartbeat < $1))
		ORDER BY created_at
		LIMIT $2`, staleBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recoverable analyses: %w", err)
	}
	defer rows.Close()

	var recoverable []models.RecoverableAnalysis
	for rows.Next() {
		var ra models.RecoverableAnalysis
		if err := rows.Scan(&ra.ID, &ra.OrganizationID, &ra.Status, &ra.Attempts); err != nil {
			return nil, fmt.Errorf("failed to scan recoverable analysis: %w", err)
		}
		recoverable = append(recoverable, ra)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recoverable analyses: %w", err)
	}
	return recoverable, nil
}

func scanAnalysis(row pgx.Row) (*models.AIAnalysis, error) {
	var a models.AIAnalysis
	var understanding, detected, recommendations, generated []byte
	var errorKind *string
	err := row.Scan(
		&a.ID, &a.OrganizationID, &a.ProcessID, &a.AnalysisType, &a.Status,
		&understanding, &detected, &recommendations, &generated,
		&a.Provider, &a.Model, &a.ErrorMessage, &errorKind,
		&a.OwnerID, &a.LastHeartbeat, &a.Attempts,
		&a.CreatedAt, &a.StartedAt, &a.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan analysis: %w", err)
	}

	if errorKind != nil {
		kind := models.AnalysisErrorKind(*errorKind)
		a.ErrorKind = &kind
	}
	if err := unmarshalJSONB(understanding, &a.Understanding); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(detected, &a.DetectedPainPoints); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(recommendations, &a.Recommendations); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(generated, &a.GeneratedProcess); err != nil {
		return nil, err
	}
	return &a, nil
}
