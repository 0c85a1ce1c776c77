package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Analysis Status
// ============================================================================

// AnalysisStatus is the lifecycle state of one pipeline execution.
type AnalysisStatus string

const (
	AnalysisStatusPending    AnalysisStatus = "PENDING"
	AnalysisStatusInProgress AnalysisStatus = "IN_PROGRESS"
	AnalysisStatusCompleted  AnalysisStatus = "COMPLETED"
	AnalysisStatusFailed     AnalysisStatus = "FAILED"
)

// IsTerminal returns true for COMPLETED and FAILED.
func (s AnalysisStatus) IsTerminal() bool {
	return s == AnalysisStatusCompleted || s == AnalysisStatusFailed
}

// IsActive returns true for PENDING and IN_PROGRESS.
func (s AnalysisStatus) IsActive() bool {
	return s == AnalysisStatusPending || s == AnalysisStatusInProgress
}

// CanTransitionTo reports whether moving from s to next is a forward step.
// PENDING may also fail directly when execution cannot start.
func (s AnalysisStatus) CanTransitionTo(next AnalysisStatus) bool {
	switch s {
	case AnalysisStatusPending:
		return next == AnalysisStatusInProgress || next == AnalysisStatusFailed
	case AnalysisStatusInProgress:
		return next == AnalysisStatusCompleted || next == AnalysisStatusFailed
	default:
		return false
	}
}

// ============================================================================
// Analysis Type
// ============================================================================

// AnalysisType selects which pipeline phases run.
type AnalysisType string

const (
	AnalysisTypeFull            AnalysisType = "FULL"
	AnalysisTypePainPoints      AnalysisType = "PAIN_POINTS"
	AnalysisTypeRecommendations AnalysisType = "RECOMMENDATIONS"
	AnalysisTypeTargetProcess   AnalysisType = "TARGET_PROCESS"
)

// ValidAnalysisTypes contains all valid analysis types.
var ValidAnalysisTypes = []AnalysisType{
	AnalysisTypeFull,
	AnalysisTypePainPoints,
	AnalysisTypeRecommendations,
	AnalysisTypeTargetProcess,
}

// IsValidAnalysisType checks if the given type is valid.
func IsValidAnalysisType(t AnalysisType) bool {
	for _, v := range ValidAnalysisTypes {
		if v == t {
			return true
		}
	}
	return false
}

// AnalysisPhases is the set of phases enabled for an analysis type.
// Process understanding always runs and is not listed.
type AnalysisPhases struct {
	PainPoints      bool
	Recommendations bool
	TargetProcess   bool
	// UseStoredRecommendations makes the TO-BE phase work from the process's
	// approved recommendations instead of freshly generated ones.
	UseStoredRecommendations bool
}

// Phases returns the phases enabled for t.
func (t AnalysisType) Phases() AnalysisPhases {
	switch t {
	case AnalysisTypeFull:
		return AnalysisPhases{PainPoints: true, Recommendations: true, TargetProcess: true}
	case AnalysisTypePainPoints:
		return AnalysisPhases{PainPoints: true}
	case AnalysisTypeRecommendations:
		return AnalysisPhases{Recommendations: true}
	case AnalysisTypeTargetProcess:
		return AnalysisPhases{TargetProcess: true, UseStoredRecommendations: true}
	default:
		return AnalysisPhases{}
	}
}

// ============================================================================
// Failure kinds
// ============================================================================

// AnalysisErrorKind classifies why an analysis failed.
type AnalysisErrorKind string

const (
	AnalysisErrorNoProvider          AnalysisErrorKind = "no_provider"
	AnalysisErrorUnsupportedProvider AnalysisErrorKind = "unsupported_provider"
	AnalysisErrorProvider            AnalysisErrorKind = "provider"
	AnalysisErrorMalformedResponse   AnalysisErrorKind = "malformed_response"
	AnalysisErrorNotFound            AnalysisErrorKind = "not_found"
	AnalysisErrorExhausted           AnalysisErrorKind = "exhausted"
	AnalysisErrorInternal            AnalysisErrorKind = "internal"
)

// ============================================================================
// Analysis
// ============================================================================

// AIAnalysis is one execution of the analysis pipeline. The row doubles as the
// durable job record: its ID is the idempotency key, OwnerID and LastHeartbeat
// track which executor holds it.
type AIAnalysis struct {
	ID             uuid.UUID      `json:"id"`
	OrganizationID uuid.UUID      `json:"organization_id"`
	ProcessID      uuid.UUID      `json:"process_id"`
	AnalysisType   AnalysisType   `json:"analysis_type"`
	Status         AnalysisStatus `json:"status"`

	Understanding      *ProcessUnderstanding     `json:"understanding,omitempty"`
	DetectedPainPoints []DetectedPainPoint       `json:"detected_pain_points,omitempty"`
	Recommendations    []GeneratedRecommendation `json:"recommendations,omitempty"`
	GeneratedProcess   *GeneratedProcess         `json:"generated_process,omitempty"`

	Provider     string             `json:"provider,omitempty"`
	Model        string             `json:"model,omitempty"`
	ErrorMessage *string            `json:"error_message,omitempty"`
	ErrorKind    *AnalysisErrorKind `json:"error_kind,omitempty"`

	OwnerID       *uuid.UUID `json:"-"`
	LastHeartbeat *time.Time `json:"-"`
	Attempts      int        `json:"attempts"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// AnalysisResults is everything a successful pipeline run commits.
type AnalysisResults struct {
	Provider           string
	Model              string
	Understanding      *ProcessUnderstanding
	DetectedPainPoints []DetectedPainPoint
	Recommendations    []GeneratedRecommendation
	GeneratedProcess   *GeneratedProcess

	// Rows derived from the results, created in the same transaction.
	PainPointRows      []*PainPoint
	RecommendationRows []*ProcessRecommendation
	TargetProcessRow   *TargetProcess
}

// RecoverableAnalysis identifies a job the recovery sweep should resubmit.
type RecoverableAnalysis struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Status         AnalysisStatus
	Attempts       int
}
