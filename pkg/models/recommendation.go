package models

import (
	"time"

	"github.com/google/uuid"
)

// RecommendationCategory classifies a suggested improvement.
type RecommendationCategory string

const (
	RecommendationQuickWin    RecommendationCategory = "QUICK_WIN"
	RecommendationStrategic   RecommendationCategory = "STRATEGIC"
	RecommendationAutomation  RecommendationCategory = "AUTOMATION"
	RecommendationIntegration RecommendationCategory = "INTEGRATION"
	RecommendationRedesign    RecommendationCategory = "REDESIGN"
)

// RecommendationCategories lists every category in prompt order.
var RecommendationCategories = []RecommendationCategory{
	RecommendationQuickWin,
	RecommendationStrategic,
	RecommendationAutomation,
	RecommendationIntegration,
	RecommendationRedesign,
}

// IsValidRecommendationCategory checks if the given category is known.
func IsValidRecommendationCategory(c RecommendationCategory) bool {
	for _, v := range RecommendationCategories {
		if v == c {
			return true
		}
	}
	return false
}

// RecommendationStatus is the review state of a recommendation.
type RecommendationStatus string

const (
	RecommendationStatusPending     RecommendationStatus = "PENDING"
	RecommendationStatusApproved    RecommendationStatus = "APPROVED"
	RecommendationStatusRejected    RecommendationStatus = "REJECTED"
	RecommendationStatusImplemented RecommendationStatus = "IMPLEMENTED"
)

// IsValidRecommendationStatus checks if the given status is known.
func IsValidRecommendationStatus(s RecommendationStatus) bool {
	switch s {
	case RecommendationStatusPending, RecommendationStatusApproved,
		RecommendationStatusRejected, RecommendationStatusImplemented:
		return true
	}
	return false
}

// CanTransitionTo reports whether a reviewer may move a recommendation from s to next.
func (s RecommendationStatus) CanTransitionTo(next RecommendationStatus) bool {
	switch s {
	case RecommendationStatusPending:
		return next == RecommendationStatusApproved || next == RecommendationStatusRejected
	case RecommendationStatusApproved:
		return next == RecommendationStatusImplemented
	default:
		return false
	}
}

// RecommendationImplementation is the stored implementation plan.
type RecommendationImplementation struct {
	Effort   Severity `json:"effort,omitempty"`
	Timeline string   `json:"timeline,omitempty"`
	Steps    []string `json:"steps,omitempty"`
}

// RecommendationMetrics is the stored benefit data.
type RecommendationMetrics struct {
	ExpectedBenefits []string        `json:"expected_benefits,omitempty"`
	Metrics          []BenefitMetric `json:"metrics,omitempty"`
}

// ProcessRecommendation is a suggested improvement, optionally tied to the analysis that produced it.
type ProcessRecommendation struct {
	ID             uuid.UUID                    `json:"id"`
	OrganizationID uuid.UUID                    `json:"organization_id"`
	ProcessID      uuid.UUID                    `json:"process_id"`
	AnalysisID     *uuid.UUID                   `json:"analysis_id,omitempty"`
	Category       RecommendationCategory       `json:"category"`
	Priority       Severity                     `json:"priority"`
	Title          string                       `json:"title"`
	Description    string                       `json:"description,omitempty"`
	Implementation RecommendationImplementation `json:"implementation"`
	Metrics        RecommendationMetrics        `json:"metrics"`
	Status         RecommendationStatus         `json:"status"`
	CreatedAt      time.Time                    `json:"created_at"`
	UpdatedAt      time.Time                    `json:"updated_at"`
}
