package models

import (
	"time"

	"github.com/google/uuid"
)

// PainPointCategory classifies an inefficiency.
type PainPointCategory string

const (
	PainPointBottleneck       PainPointCategory = "BOTTLENECK"
	PainPointRework           PainPointCategory = "REWORK"
	PainPointWaste            PainPointCategory = "WASTE"
	PainPointManualProcess    PainPointCategory = "MANUAL_PROCESS"
	PainPointComplianceRisk   PainPointCategory = "COMPLIANCE_RISK"
	PainPointSystemLimitation PainPointCategory = "SYSTEM_LIMITATION"
	PainPointCommunicationGap PainPointCategory = "COMMUNICATION_GAP"
)

// PainPointCategories lists every category in prompt order.
var PainPointCategories = []PainPointCategory{
	PainPointBottleneck,
	PainPointRework,
	PainPointWaste,
	PainPointManualProcess,
	PainPointComplianceRisk,
	PainPointSystemLimitation,
	PainPointCommunicationGap,
}

// IsValidPainPointCategory checks if the given category is known.
func IsValidPainPointCategory(c PainPointCategory) bool {
	for _, v := range PainPointCategories {
		if v == c {
			return true
		}
	}
	return false
}

// Severity is the four-tier scale shared by pain points and recommendation priority.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Severities lists the scale from lowest to highest.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// IsValidSeverity checks if the given severity is on the scale.
func IsValidSeverity(s Severity) bool {
	for _, v := range Severities {
		if v == s {
			return true
		}
	}
	return false
}

// AtLeastHigh reports whether s is HIGH or CRITICAL.
func (s Severity) AtLeastHigh() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// PainPoint is an identified inefficiency, entered by a user or detected by an analysis.
type PainPoint struct {
	ID             uuid.UUID         `json:"id"`
	OrganizationID uuid.UUID         `json:"organization_id"`
	ProcessID      uuid.UUID         `json:"process_id"`
	ProcessStepID  *uuid.UUID        `json:"process_step_id,omitempty"`
	AnalysisID     *uuid.UUID        `json:"analysis_id,omitempty"`
	Category       PainPointCategory `json:"category"`
	Severity       Severity          `json:"severity"`
	Title          string            `json:"title"`
	Description    string            `json:"description,omitempty"`
	EstimatedCost  string            `json:"estimated_cost,omitempty"`
	EstimatedTime  string            `json:"estimated_time,omitempty"`
	Frequency      string            `json:"frequency,omitempty"`
	IsAIDetected   bool              `json:"is_ai_detected"`
	CreatedAt      time.Time         `json:"created_at"`
}
