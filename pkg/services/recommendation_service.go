package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/processx-inc/processx-engine/pkg/apperrors"
	"github.com/processx-inc/processx-engine/pkg/models"
	"github.com/processx-inc/processx-engine/pkg/repositories"
)

// RecommendationService lists recommendations and moves them through review.
type RecommendationService interface {
	// List returns the process's recommendations, highest priority first.
	// An empty status returns every status.
	List(ctx context.Context, processID uuid.UUID, status models.RecommendationStatus) ([]*models.ProcessRecommendation, error)

	Approve(ctx context.Context, id uuid.UUID) (*models.ProcessRecommendation, error)
	Reject(ctx context.Context, id uuid.UUID) (*models.ProcessRecommendation, error)
	MarkImplemented(ctx context.Context, id uuid.UUID) (*models.ProcessRecommendation, error)
}

type recommendationService struct {
	processRepo        repositories.ProcessRepository
	recommendationRepo repositories.RecommendationRepository
	logger             *zap.Logger
}

// NewRecommendationService creates a RecommendationService.
func NewRecommendationService(processRepo repositories.ProcessRepository, recommendationRepo repositories.RecommendationRepository, logger *zap.Logger) RecommendationService {
	return &recommendationService{
		processRepo:        processRepo,
		recommendationRepo: recommendationRepo,
		logger:             logger.Named("recommendation-service"),
	}
}

var _ RecommendationService = (*recommendationService)(nil)

func (s *recommendationService) List(ctx context.Context, processID uuid.UUID, status models.RecommendationStatus) ([]*models.ProcessRecommendation, error) {
	if status != "" && !models.IsValidRecommendationStatus(status) {
		return nil, fmt.Errorf("%w: unknown recommendation status %q", apperrors.ErrValidation, status)
	}

	exists, err := s.processRepo.Exists(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("check process: %w", err)
	}
	if !exists {
		return nil, apperrors.ErrNotFound
	}
	return s.recommendationRepo.ListByProcess(ctx, processID, status)
}

func (s *recommendationService) Approve(ctx context.Context, id uuid.UUID) (*models.ProcessRecommendation, error) {
	return s.transition(ctx, id, models.RecommendationStatusApproved)
}

func (s *recommendationService) Reject(ctx context.Context, id uuid.UUID) (*models.ProcessRecommendation, error) {
	return s.transition(ctx, id, models.RecommendationStatusRejected)
}

func (s *recommendationService) MarkImplemented(ctx context.Context, id uuid.UUID) (*models.ProcessRecommendation, error) {
	return s.transition(ctx, id, models.RecommendationStatusImplemented)
}

func (s *recommendationService) transition(ctx context.Context, id uuid.UUID, to models.RecommendationStatus) (*models.ProcessRecommendation, error) {
	current, err := s.recommendationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: recommendation is %s, cannot become %s", apperrors.ErrInvalidTransition, current.Status, to)
	}

	// UpdateStatus only applies while the row is still in current.Status.
	updated, err := s.recommendationRepo.UpdateStatus(ctx, id, current.Status, to)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Recommendation status changed",
		zap.String("recommendation_id", id.String()),
		zap.String("from", string(current.Status)),
		zap.String("to", string(to)))
	return updated, nil
}
