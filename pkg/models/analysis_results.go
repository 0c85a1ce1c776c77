package models

import (
	"github.com/processx-inc/processx-engine/pkg/jsonutil"
)

// Payloads returned by the model for each phase. Field names match the JSON
// the prompts ask for; scalar fields models tend to mistype use jsonutil types.

// ComplexityTier is the model's rating of how complex a process is.
type ComplexityTier string

const (
	ComplexityLow    ComplexityTier = "LOW"
	ComplexityMedium ComplexityTier = "MEDIUM"
	ComplexityHigh   ComplexityTier = "HIGH"
)

// ProcessUnderstanding is the output of the understanding phase.
type ProcessUnderstanding struct {
	Purpose      string                      `json:"purpose"`
	CriticalPath jsonutil.FlexibleStringList `json:"critical_path"`
	Stakeholders jsonutil.FlexibleStringList `json:"stakeholders"`
	Complexity   ComplexityTier              `json:"complexity"`
	Strengths    jsonutil.FlexibleStringList `json:"strengths"`
	Weaknesses   jsonutil.FlexibleStringList `json:"weaknesses"`
	Summary      string                      `json:"summary,omitempty"`
}

// DetectedPainPoint is one pain point proposed by the detection phase.
type DetectedPainPoint struct {
	Title         string                  `json:"title"`
	Description   string                  `json:"description"`
	Category      PainPointCategory       `json:"category"`
	Severity      Severity                `json:"severity"`
	StepName      string                  `json:"step_name,omitempty"`
	EstimatedCost jsonutil.FlexibleString `json:"estimated_cost,omitempty"`
	EstimatedTime jsonutil.FlexibleString `json:"estimated_time,omitempty"`
	Frequency     jsonutil.FlexibleString `json:"frequency,omitempty"`
}

// BenefitMetric is a measurable expected outcome of a recommendation.
type BenefitMetric struct {
	Name    string                  `json:"name"`
	Current jsonutil.FlexibleString `json:"current,omitempty"`
	Target  jsonutil.FlexibleString `json:"target,omitempty"`
}

// GeneratedRecommendation is one improvement proposed by the recommendation phase.
type GeneratedRecommendation struct {
	Title               string                      `json:"title"`
	Description         string                      `json:"description"`
	Category            RecommendationCategory      `json:"category"`
	Priority            Severity                    `json:"priority"`
	Effort              Severity                    `json:"effort,omitempty"`
	Timeline            jsonutil.FlexibleString     `json:"timeline,omitempty"`
	ImplementationSteps jsonutil.FlexibleStringList `json:"implementation_steps,omitempty"`
	ExpectedBenefits    jsonutil.FlexibleStringList `json:"expected_benefits,omitempty"`
	Metrics             []BenefitMetric             `json:"metrics,omitempty"`
	RelatedPainPoints   jsonutil.FlexibleStringList `json:"related_pain_points,omitempty"`
}

// GeneratedStep is a step of a redesigned process.
type GeneratedStep struct {
	Name            string                      `json:"name"`
	Type            StepType                    `json:"type"`
	Description     string                      `json:"description,omitempty"`
	Duration        *int                        `json:"duration,omitempty"`
	ResponsibleRole string                      `json:"responsible_role,omitempty"`
	Systems         jsonutil.FlexibleStringList `json:"systems,omitempty"`
}

// GeneratedConnection links two generated steps by name.
type GeneratedConnection struct {
	Source string         `json:"source"`
	Target string         `json:"target"`
	Label  string         `json:"label,omitempty"`
	Type   ConnectionType `json:"type,omitempty"`
}

// GeneratedProcess is the output of the target-process phase.
type GeneratedProcess struct {
	Name                 string                      `json:"name"`
	Steps                []GeneratedStep             `json:"steps"`
	Connections          []GeneratedConnection       `json:"connections"`
	ImprovementSummary   string                      `json:"improvement_summary"`
	Changes              jsonutil.FlexibleStringList `json:"changes,omitempty"`
	EstimatedTimeSavings jsonutil.FlexibleString     `json:"estimated_time_savings,omitempty"`
}
