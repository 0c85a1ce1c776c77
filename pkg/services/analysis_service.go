package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/processx-inc/processx-engine/pkg/apperrors"
	"github.com/processx-inc/processx-engine/pkg/models"
	"github.com/processx-inc/processx-engine/pkg/repositories"
)

// AnalysisService starts analyses and reads their state.
type AnalysisService interface {
	// RequestAnalysis creates a PENDING analysis and hands it to the executor.
	// When an analysis of the same type is already active for the process it
	// is returned instead with created=false.
	RequestAnalysis(ctx context.Context, organizationID, processID uuid.UUID, analysisType models.AnalysisType) (analysis *models.AIAnalysis, created bool, err error)

	GetAnalysis(ctx context.Context, analysisID uuid.UUID) (*models.AIAnalysis, error)

	// ListByProcess returns the process's analyses, newest first.
	ListByProcess(ctx context.Context, processID uuid.UUID) ([]*models.AIAnalysis, error)
}

type analysisService struct {
	processRepo  repositories.ProcessRepository
	analysisRepo repositories.AnalysisRepository
	executor     AnalysisExecutor
	logger       *zap.Logger
}

// NewAnalysisService creates an AnalysisService.
func NewAnalysisService(
	processRepo repositories.ProcessRepository,
	analysisRepo repositories.AnalysisRepository,
	executor AnalysisExecutor,
	logger *zap.Logger,
) AnalysisService {
	return &analysisService{
		processRepo:  processRepo,
		analysisRepo: analysisRepo,
		executor:     executor,
		logger:       logger.Named("analysis-service"),
	}
}

var _ AnalysisService = (*analysisService)(nil)

func (s *analysisService) RequestAnalysis(ctx context.Context, organizationID, processID uuid.UUID, analysisType models.AnalysisType) (*models.AIAnalysis, bool, error) {
	if !models.IsValidAnalysisType(analysisType) {
		return nil, false, fmt.Errorf("%w: unknown analysis type %q", apperrors.ErrValidation, analysisType)
	}

	exists, err := s.processRepo.Exists(ctx, processID)
	if err != nil {
		return nil, false, fmt.Errorf("check process: %w", err)
	}
	if !exists {
		return nil, false, apperrors.ErrNotFound
	}

	analysis := &models.AIAnalysis{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		ProcessID:      processID,
		AnalysisType:   analysisType,
		Status:         models.AnalysisStatusPending,
	}
	if err := s.analysisRepo.Create(ctx, analysis); err != nil {
		if !errors.Is(err, apperrors.ErrConflict) {
			return nil, false, fmt.Errorf("create analysis: %w", err)
		}

		active, findErr := s.analysisRepo.FindActive(ctx, processID, analysisType)
		if findErr != nil {
			return nil, false, fmt.Errorf("find active analysis: %w", findErr)
		}
		if active == nil {
			// The active run finished between the insert and the lookup.
			return nil, false, fmt.Errorf("%w: analysis already requested", apperrors.ErrConflict)
		}

		s.logger.Info("Analysis already active",
			zap.String("analysis_id", active.ID.String()),
			zap.String("process_id", processID.String()),
			zap.String("analysis_type", string(analysisType)))
		return active, false, nil
	}

	s.logger.Info("Analysis requested",
		zap.String("analysis_id", analysis.ID.String()),
		zap.String("organization_id", organizationID.String()),
		zap.String("process_id", processID.String()),
		zap.String("analysis_type", string(analysisType)))

	// A false return is not an error: the row is durable and the sweep will run it.
	if !s.executor.Submit(organizationID, analysis.ID) {
		s.logger.Warn("Executor did not accept analysis, leaving it for recovery",
			zap.String("analysis_id", analysis.ID.String()))
	}
	return analysis, true, nil
}

func (s *analysisService) GetAnalysis(ctx context.Context, analysisID uuid.UUID) (*models.AIAnalysis, error) {
	return s.analysisRepo.GetByID(ctx, analysisID)
}

func (s *analysisService) ListByProcess(ctx context.Context, processID uuid.UUID) ([]*models.AIAnalysis, error) {
	exists, err := s.processRepo.Exists(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("check process: %w", err)
	}
	if !exists {
		return nil, apperrors.ErrNotFound
	}
	return s.analysisRepo.ListByProcess(ctx, processID)
}
