package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/processx-inc/processx-engine/pkg/models"
	"github.com/processx-inc/processx-engine/pkg/repositories"
)

// ContextGatherer loads everything the prompts are rendered from.
type ContextGatherer interface {
	// Gather returns apperrors.ErrNotFound when the process is not visible to
	// the tenant in ctx.
	Gather(ctx context.Context, processID uuid.UUID) (*models.ProcessContext, error)
}

type contextGatherer struct {
	processRepo   repositories.ProcessRepository
	painPointRepo repositories.PainPointRepository
}

// NewContextGatherer creates a ContextGatherer.
func NewContextGatherer(processRepo repositories.ProcessRepository, painPointRepo repositories.PainPointRepository) ContextGatherer {
	return &contextGatherer{
		processRepo:   processRepo,
		painPointRepo: painPointRepo,
	}
}

var _ ContextGatherer = (*contextGatherer)(nil)

func (g *contextGatherer) Gather(ctx context.Context, processID uuid.UUID) (*models.ProcessContext, error) {
	graph, err := g.processRepo.GetGraph(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("load process graph: %w", err)
	}

	painPoints, err := g.painPointRepo.ListByProcess(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("load pain points: %w", err)
	}

	pc := &models.ProcessContext{
		Graph:          graph,
		UserPainPoints: make([]*models.PainPoint, 0),
		AIPainPoints:   make([]*models.PainPoint, 0),
		Metrics:        ComputeProcessMetrics(graph),
	}
	for _, pp := range painPoints {
		if pp.IsAIDetected {
			pc.AIPainPoints = append(pc.AIPainPoints, pp)
		} else {
			pc.UserPainPoints = append(pc.UserPainPoints, pp)
		}
	}
	return pc, nil
}

// ComputeProcessMetrics derives aggregate numbers from a process graph.
// A missing step duration counts as zero. A step is a bottleneck when its
// duration exceeds twice the average.
func ComputeProcessMetrics(graph *models.ProcessGraph) models.ProcessMetrics {
	m := models.ProcessMetrics{Systems: []string{}}
	if graph == nil {
		return m
	}

	m.StepCount = len(graph.Steps)
	m.ConnectionCount = len(graph.Connections)

	systems := make(map[string]struct{})
	for _, s := range graph.Steps {
		m.TotalDuration += s.DurationOrZero()
		if s.IsManual() {
			m.ManualTaskCount++
		}
		for _, sys := range s.Systems {
			systems[sys] = struct{}{}
		}
	}

	if m.StepCount > 0 {
		m.AverageDuration = float64(m.TotalDuration) / float64(m.StepCount)
	}
	for _, s := range graph.Steps {
		if float64(s.DurationOrZero()) > 2*m.AverageDuration {
			m.BottleneckCount++
		}
	}

	for sys := range systems {
		m.Systems = append(m.Systems, sys)
	}
	sort.Strings(m.Systems)
	m.DistinctSystemCount = len(m.Systems)
	return m
}

var severityPenalty = map[models.Severity]int{
	models.SeverityCritical: 15,
	models.SeverityHigh:     10,
	models.SeverityMedium:   5,
	models.SeverityLow:      2,
}

// ComputeHealthScore rates a process from 0 (worst) to 100.
func ComputeHealthScore(metrics models.ProcessMetrics, painPoints []*models.PainPoint) int {
	score := 100 - 10*metrics.BottleneckCount - 5*metrics.ManualTaskCount
	for _, pp := range painPoints {
		score -= severityPenalty[pp.Severity]
	}
	return min(max(score, 0), 100)
}
