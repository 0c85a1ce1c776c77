package prompts

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/processx-inc/processx-engine/pkg/models"
)

func intPtr(v int) *int { return &v }

func testContext() *models.ProcessContext {
	start := &models.ProcessStep{ID: uuid.New(), Name: "Receive order", Type: models.StepTypeStart}
	entry := &models.ProcessStep{ID: uuid.New(), Name: "Enter order in ERP", Type: models.StepTypeTask, Duration: intPtr(30), ResponsibleRole: "Clerk", Systems: []string{"ERP"}}
	check := &models.ProcessStep{ID: uuid.New(), Name: "Credit check", Type: models.StepTypeTask, Duration: intPtr(90)}
	end := &models.ProcessStep{ID: uuid.New(), Name: "Ship", Type: models.StepTypeEnd}

	return &models.ProcessContext{
		Graph: &models.ProcessGraph{
			Process: &models.Process{ID: uuid.New(), Name: "Order to cash", Type: models.ProcessTypeCurrentState},
			Steps:   []*models.ProcessStep{start, entry, check, end},
			Connections: []*models.ProcessConnection{
				{SourceStepID: start.ID, TargetStepID: entry.ID},
				{SourceStepID: entry.ID, TargetStepID: check.ID, Label: "new customer", Type: models.ConnectionTypeConditional},
				{SourceStepID: check.ID, TargetStepID: end.ID},
			},
		},
		UserPainPoints: []*models.PainPoint{
			{Title: "Credit checks take too long", Category: models.PainPointBottleneck, Severity: models.SeverityHigh},
		},
		Metrics: models.ProcessMetrics{StepCount: 4, TotalDuration: 120, AverageDuration: 30, BottleneckCount: 1, ManualTaskCount: 1, DistinctSystemCount: 1, Systems: []string{"ERP"}},
	}
}

func TestBuildUnderstandingPrompt(t *testing.T) {
	prompt := BuildUnderstandingPrompt(testContext())

	assert.Contains(t, prompt, "Order to cash")
	assert.Contains(t, prompt, "2. Enter order in ERP [TASK] - 30 min - role: Clerk - systems: ERP")
	assert.Contains(t, prompt, "3. Credit check [TASK] - 90 min - manual")
	assert.Contains(t, prompt, "- Enter order in ERP → Credit check (new customer) [conditional]")
	assert.Contains(t, prompt, "Total duration: 120 min (average 30.0 min per step)")
	assert.Contains(t, prompt, `"critical_path"`)
	assert.Contains(t, prompt, `"LOW" | "MEDIUM" | "HIGH"`)
}

func TestBuildPainPointPrompt(t *testing.T) {
	prompt := BuildPainPointPrompt(testContext())

	for _, c := range models.PainPointCategories {
		assert.Contains(t, prompt, string(c))
	}
	assert.Contains(t, prompt, "LOW, MEDIUM, HIGH, CRITICAL")
	assert.Contains(t, prompt, "[BOTTLENECK/HIGH] Credit checks take too long (user)")
	assert.Contains(t, prompt, "Return only NEW pain points")
}

func TestBuildPainPointPrompt_NoExisting(t *testing.T) {
	pc := testContext()
	pc.UserPainPoints = nil

	assert.Contains(t, BuildPainPointPrompt(pc), "None recorded.")
}

func TestBuildRecommendationPrompt(t *testing.T) {
	understanding := &models.ProcessUnderstanding{
		Purpose:      "Turn orders into revenue",
		Complexity:   models.ComplexityMedium,
		CriticalPath: []string{"Receive order", "Credit check", "Ship"},
	}
	detected := []models.DetectedPainPoint{
		{Title: "Duplicate data entry", Category: models.PainPointManualProcess, Severity: models.SeverityMedium},
	}

	prompt := BuildRecommendationPrompt(testContext(), understanding, detected)

	for _, c := range models.RecommendationCategories {
		assert.Contains(t, prompt, string(c))
	}
	assert.Contains(t, prompt, "Purpose: Turn orders into revenue")
	assert.Contains(t, prompt, "Critical path: Receive order → Credit check → Ship")
	assert.Contains(t, prompt, "[MANUAL_PROCESS/MEDIUM] Duplicate data entry")
	assert.Contains(t, prompt, `"implementation_steps"`)
	assert.Contains(t, prompt, `"metrics"`)
}

func TestBuildRecommendationPrompt_NilUnderstanding(t *testing.T) {
	prompt := BuildRecommendationPrompt(testContext(), nil, nil)

	assert.NotContains(t, prompt, "## Process Analysis")
	assert.NotContains(t, prompt, "## Newly Detected Pain Points")
}

func TestBuildTargetProcessPrompt(t *testing.T) {
	recs := []models.GeneratedRecommendation{
		{Title: "Automate credit checks", Category: models.RecommendationAutomation, Priority: models.SeverityHigh},
	}

	prompt := BuildTargetProcessPrompt(testContext(), recs)

	assert.Contains(t, prompt, "1. [AUTOMATION/HIGH] Automate credit checks")
	assert.Contains(t, prompt, "START, TASK, DECISION, END")
	assert.Contains(t, prompt, `"improvement_summary"`)
}

func TestShouldGenerateTargetProcess(t *testing.T) {
	current := &models.Process{Type: models.ProcessTypeCurrentState}
	future := &models.Process{Type: models.ProcessTypeFutureState}
	high := []models.GeneratedRecommendation{{Priority: models.SeverityLow}, {Priority: models.SeverityHigh}}
	critical := []models.GeneratedRecommendation{{Priority: models.SeverityCritical}}
	low := []models.GeneratedRecommendation{{Priority: models.SeverityLow}, {Priority: models.SeverityMedium}}

	tests := []struct {
		name    string
		process *models.Process
		recs    []models.GeneratedRecommendation
		want    bool
	}{
		{"current with high", current, high, true},
		{"current with critical", current, critical, true},
		{"lowercase priority", current, []models.GeneratedRecommendation{{Priority: "high"}}, true},
		{"current without high", current, low, false},
		{"current without recommendations", current, nil, false},
		{"future state", future, high, false},
		{"nil process", nil, high, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldGenerateTargetProcess(tt.process, tt.recs))
		})
	}
}

func TestSystemMessage_RequiresJSON(t *testing.T) {
	assert.Contains(t, SystemMessage, "valid JSON only")
}
