package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/processx-inc/processx-engine/pkg/apperrors"
	"github.com/processx-inc/processx-engine/pkg/models"
)

func TestProcessService_GetHealth(t *testing.T) {
	graph := testGraph(uuid.New())
	pid := graph.Process.ID
	ppRepo := &mockPainPointRepo{byProcess: map[uuid.UUID][]*models.PainPoint{
		pid: {
			{Title: "Late approvals", Severity: models.SeverityHigh},
			{Title: "Typos", Severity: models.SeverityLow, IsAIDetected: true},
		},
	}}
	svc := NewProcessService(newMockProcessRepo(graph), ppRepo, &mockTargetProcessRepo{})

	health, err := svc.GetHealth(context.Background(), pid)
	require.NoError(t, err)

	assert.Equal(t, 2, health.PainPointCount)
	assert.Equal(t, 1, health.Metrics.BottleneckCount)
	assert.Equal(t, 1, health.Metrics.ManualTaskCount)
	// 100 - 10 (bottleneck) - 5 (manual) - 10 (HIGH) - 2 (LOW)
	assert.Equal(t, 73, health.HealthScore)
}

func TestProcessService_NotFound(t *testing.T) {
	svc := NewProcessService(newMockProcessRepo(), &mockPainPointRepo{}, &mockTargetProcessRepo{})
	ctx := context.Background()

	_, err := svc.GetHealth(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = svc.ListPainPoints(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = svc.ListTargetProcesses(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProcessService_Lists(t *testing.T) {
	graph := testGraph(uuid.New())
	pid := graph.Process.ID
	ppRepo := &mockPainPointRepo{byProcess: map[uuid.UUID][]*models.PainPoint{
		pid: {{Title: "Late approvals", Severity: models.SeverityHigh}},
	}}
	tpRepo := &mockTargetProcessRepo{targets: []*models.TargetProcess{
		{ID: uuid.New(), ProcessID: pid, Name: "Invoice approval (TO-BE)", Status: models.TargetProcessStatusDraft},
		{ID: uuid.New(), ProcessID: uuid.New(), Name: "Other"},
	}}
	svc := NewProcessService(newMockProcessRepo(graph), ppRepo, tpRepo)
	ctx := context.Background()

	pps, err := svc.ListPainPoints(ctx, pid)
	require.NoError(t, err)
	assert.Len(t, pps, 1)

	tps, err := svc.ListTargetProcesses(ctx, pid)
	require.NoError(t, err)
	require.Len(t, tps, 1)
	assert.Equal(t, "Invoice approval (TO-BE)", tps[0].Name)
}
