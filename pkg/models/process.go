package models

import (
	"time"

	"github.com/google/uuid"
)

// ProcessType distinguishes mapped AS-IS workflows from proposed TO-BE ones.
type ProcessType string

const (
	ProcessTypeCurrentState ProcessType = "CURRENT_STATE"
	ProcessTypeFutureState  ProcessType = "FUTURE_STATE"
)

// StepType is the kind of node in a process graph.
type StepType string

const (
	StepTypeStart    StepType = "START"
	StepTypeTask     StepType = "TASK"
	StepTypeDecision StepType = "DECISION"
	StepTypeEnd      StepType = "END"
)

// ConnectionType is the kind of edge between two steps.
type ConnectionType string

const (
	ConnectionTypeDefault     ConnectionType = "DEFAULT"
	ConnectionTypeConditional ConnectionType = "CONDITIONAL"
)

// Process is a mapped business workflow owned by one organization.
type Process struct {
	ID             uuid.UUID   `json:"id"`
	OrganizationID uuid.UUID   `json:"organization_id"`
	Name           string      `json:"name"`
	Description    string      `json:"description,omitempty"`
	Type           ProcessType `json:"type"`
	Status         string      `json:"status"`
	Version        int         `json:"version"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// ProcessStep is a node in the process graph.
// Duration is in minutes; nil means the duration was never recorded.
type ProcessStep struct {
	ID              uuid.UUID `json:"id"`
	ProcessID       uuid.UUID `json:"process_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Type            StepType  `json:"type"`
	Duration        *int      `json:"duration,omitempty"`
	PositionX       float64   `json:"position_x"`
	PositionY       float64   `json:"position_y"`
	ResponsibleRole string    `json:"responsible_role,omitempty"`
	Systems         []string  `json:"systems"`
	SortOrder       int       `json:"sort_order"`
}

// DurationOrZero returns the step duration, treating a missing value as 0.
func (s *ProcessStep) DurationOrZero() int {
	if s.Duration == nil {
		return 0
	}
	return *s.Duration
}

// IsManual reports whether the step is a task performed without any system.
func (s *ProcessStep) IsManual() bool {
	return s.Type == StepTypeTask && len(s.Systems) == 0
}

// ProcessConnection is a directed edge between two steps.
type ProcessConnection struct {
	ID           uuid.UUID      `json:"id"`
	ProcessID    uuid.UUID      `json:"process_id"`
	SourceStepID uuid.UUID      `json:"source_step_id"`
	TargetStepID uuid.UUID      `json:"target_step_id"`
	Label        string         `json:"label,omitempty"`
	Type         ConnectionType `json:"type"`
}

// ProcessGraph is a process with its ordered steps and connections.
type ProcessGraph struct {
	Process     *Process             `json:"process"`
	Steps       []*ProcessStep       `json:"steps"`
	Connections []*ProcessConnection `json:"connections"`
}

// StepByID returns the step with the given id, or nil.
func (g *ProcessGraph) StepByID(id uuid.UUID) *ProcessStep {
	for _, s := range g.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// StepByName returns the first step whose name matches exactly, or nil.
func (g *ProcessGraph) StepByName(name string) *ProcessStep {
	for _, s := range g.Steps {
		if s.Name == name {
			return s
		}
	}
	return nil
}
