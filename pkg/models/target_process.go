package models

import (
	"time"

	"github.com/google/uuid"
)

// TargetProcessStatus is the review state of a proposed redesign.
type TargetProcessStatus string

const (
	TargetProcessStatusDraft    TargetProcessStatus = "DRAFT"
	TargetProcessStatusAccepted TargetProcessStatus = "ACCEPTED"
)

// TargetProcess is a proposed redesigned ("TO-BE") version of a process.
type TargetProcess struct {
	ID                   uuid.UUID             `json:"id"`
	OrganizationID       uuid.UUID             `json:"organization_id"`
	ProcessID            uuid.UUID             `json:"process_id"`
	AnalysisID           *uuid.UUID            `json:"analysis_id,omitempty"`
	Name                 string                `json:"name"`
	GeneratedSteps       []GeneratedStep       `json:"generated_steps"`
	GeneratedConnections []GeneratedConnection `json:"generated_connections"`
	ImprovementSummary   string                `json:"improvement_summary"`
	Status               TargetProcessStatus   `json:"status"`
	CreatedAt            time.Time             `json:"created_at"`
}
