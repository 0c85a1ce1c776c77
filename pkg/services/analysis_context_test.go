package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/processx-inc/processx-engine/pkg/apperrors"
	"github.com/processx-inc/processx-engine/pkg/models"
)

func TestComputeProcessMetrics(t *testing.T) {
	graph := testGraph(uuid.New())
	graph.Steps[2].Systems = []string{"SAP", "Coupa"}

	m := ComputeProcessMetrics(graph)

	assert.Equal(t, 4, m.StepCount)
	assert.Equal(t, 3, m.ConnectionCount)
	assert.Equal(t, 135, m.TotalDuration)
	assert.InDelta(t, 33.75, m.AverageDuration, 1e-9)
	assert.Equal(t, 1, m.BottleneckCount, "only the 120 minute review exceeds twice the average")
	assert.Equal(t, 1, m.ManualTaskCount)
	assert.Equal(t, []string{"Coupa", "SAP"}, m.Systems)
	assert.Equal(t, 2, m.DistinctSystemCount)
}

func TestComputeProcessMetrics_Empty(t *testing.T) {
	m := ComputeProcessMetrics(&models.ProcessGraph{Process: &models.Process{}})
	assert.Zero(t, m.StepCount)
	assert.Zero(t, m.AverageDuration)
	assert.Zero(t, m.BottleneckCount)
	assert.NotNil(t, m.Systems)

	assert.NotNil(t, ComputeProcessMetrics(nil).Systems)
}

func TestComputeProcessMetrics_EqualDurationsHaveNoBottleneck(t *testing.T) {
	d := 30
	graph := &models.ProcessGraph{Steps: []*models.ProcessStep{
		{Type: models.StepTypeTask, Duration: &d, Systems: []string{"CRM"}},
		{Type: models.StepTypeTask, Duration: &d, Systems: []string{"CRM"}},
	}}
	assert.Zero(t, ComputeProcessMetrics(graph).BottleneckCount)
}

func TestComputeHealthScore(t *testing.T) {
	tests := []struct {
		name       string
		metrics    models.ProcessMetrics
		severities []models.Severity
		want       int
	}{
		{"clean", models.ProcessMetrics{}, nil, 100},
		{"bottleneck and manual", models.ProcessMetrics{BottleneckCount: 1, ManualTaskCount: 2}, nil, 80},
		{"pain points", models.ProcessMetrics{}, []models.Severity{models.SeverityCritical, models.SeverityHigh, models.SeverityMedium, models.SeverityLow}, 68},
		{"clamped at zero", models.ProcessMetrics{BottleneckCount: 5, ManualTaskCount: 10}, []models.Severity{models.SeverityCritical}, 0},
		{"unknown severity ignored", models.ProcessMetrics{}, []models.Severity{"SEVERE"}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pps := make([]*models.PainPoint, 0, len(tt.severities))
			for _, s := range tt.severities {
				pps = append(pps, &models.PainPoint{Severity: s})
			}
			assert.Equal(t, tt.want, ComputeHealthScore(tt.metrics, pps))
		})
	}
}

func TestContextGatherer_SplitsPainPoints(t *testing.T) {
	graph := testGraph(uuid.New())
	ppRepo := &mockPainPointRepo{byProcess: map[uuid.UUID][]*models.PainPoint{
		graph.Process.ID: {
			{Title: "Entered by analyst"},
			{Title: "Found earlier", IsAIDetected: true},
		},
	}}

	pc, err := NewContextGatherer(newMockProcessRepo(graph), ppRepo).Gather(context.Background(), graph.Process.ID)
	require.NoError(t, err)

	require.Len(t, pc.UserPainPoints, 1)
	assert.Equal(t, "Entered by analyst", pc.UserPainPoints[0].Title)
	require.Len(t, pc.AIPainPoints, 1)
	assert.Equal(t, "Found earlier", pc.AIPainPoints[0].Title)
	assert.Equal(t, 4, pc.Metrics.StepCount)
}

func TestContextGatherer_Errors(t *testing.T) {
	graph := testGraph(uuid.New())

	_, err := NewContextGatherer(newMockProcessRepo(), &mockPainPointRepo{}).Gather(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	boom := errors.New("connection reset")
	_, err = NewContextGatherer(newMockProcessRepo(graph), &mockPainPointRepo{err: boom}).Gather(context.Background(), graph.Process.ID)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "load pain points")
}
