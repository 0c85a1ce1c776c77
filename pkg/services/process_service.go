package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/processx-inc/processx-engine/pkg/apperrors"
	"github.com/processx-inc/processx-engine/pkg/models"
	"github.com/processx-inc/processx-engine/pkg/repositories"
)

// ProcessService serves read views of a process: health, pain points and
// proposed TO-BE processes.
type ProcessService interface {
	GetHealth(ctx context.Context, processID uuid.UUID) (*models.ProcessHealth, error)
	ListPainPoints(ctx context.Context, processID uuid.UUID) ([]*models.PainPoint, error)
	ListTargetProcesses(ctx context.Context, processID uuid.UUID) ([]*models.TargetProcess, error)
}

type processService struct {
	processRepo       repositories.ProcessRepository
	painPointRepo     repositories.PainPointRepository
	targetProcessRepo repositories.TargetProcessRepository
	gatherer          ContextGatherer
}

// NewProcessService creates a ProcessService.
func NewProcessService(
	processRepo repositories.ProcessRepository,
	painPointRepo repositories.PainPointRepository,
	targetProcessRepo repositories.TargetProcessRepository,
) ProcessService {
	return &processService{
		processRepo:       processRepo,
		painPointRepo:     painPointRepo,
		targetProcessRepo: targetProcessRepo,
		gatherer:          NewContextGatherer(processRepo, painPointRepo),
	}
}

var _ ProcessService = (*processService)(nil)

func (s *processService) GetHealth(ctx context.Context, processID uuid.UUID) (*models.ProcessHealth, error) {
	pc, err := s.gatherer.Gather(ctx, processID)
	if err != nil {
		return nil, err
	}
	all := pc.AllPainPoints()
	return &models.ProcessHealth{
		Metrics:        pc.Metrics,
		PainPointCount: len(all),
		HealthScore:    ComputeHealthScore(pc.Metrics, all),
	}, nil
}

func (s *processService) ListPainPoints(ctx context.Context, processID uuid.UUID) ([]*models.PainPoint, error) {
	if err := s.requireProcess(ctx, processID); err != nil {
		return nil, err
	}
	return s.painPointRepo.ListByProcess(ctx, processID)
}

func (s *processService) ListTargetProcesses(ctx context.Context, processID uuid.UUID) ([]*models.TargetProcess, error) {
	if err := s.requireProcess(ctx, processID); err != nil {
		return nil, err
	}
	return s.targetProcessRepo.ListByProcess(ctx, processID)
}

func (s *processService) requireProcess(ctx context.Context, processID uuid.UUID) error {
	exists, err := s.processRepo.Exists(ctx, processID)
	if err != nil {
		return fmt.Errorf("check process: %w", err)
	}
	if !exists {
		return apperrors.ErrNotFound
	}
	return nil
}
