// Package audit records who started analyses and who decided on
// recommendations. Events are emitted as structured JSON under the
// "audit" logger so they can be shipped to a SIEM separately from
// application logs.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/processx-inc/processx-engine/pkg/auth"
	"github.com/processx-inc/processx-engine/pkg/models"
)

// EventType categorizes audit events for filtering and alerting.
type EventType string

const (
	// EventAnalysisRequested is logged when a caller asks for an analysis,
	// whether or not a new one was created.
	EventAnalysisRequested EventType = "analysis_requested"
	// EventRecommendationDecision is logged for every accepted status change.
	EventRecommendationDecision EventType = "recommendation_decision"
)

// Event is one auditable action.
type Event struct {
	Timestamp      time.Time `json:"timestamp"`
	EventType      EventType `json:"event_type"`
	OrganizationID uuid.UUID `json:"organization_id"`
	ResourceID     uuid.UUID `json:"resource_id"`
	UserID         string    `json:"user_id,omitempty"`
	ClientIP       string    `json:"client_ip,omitempty"`
	Details        any       `json:"details"`
}

// AnalysisRequestDetails describes an analysis request.
type AnalysisRequestDetails struct {
	ProcessID    uuid.UUID           `json:"process_id"`
	AnalysisType models.AnalysisType `json:"analysis_type"`
	Created      bool                `json:"created"`
}

// Auditor writes audit events.
type Auditor struct {
	logger *zap.Logger
}

// NewAuditor creates an auditor logging under the "audit" namespace.
func NewAuditor(logger *zap.Logger) *Auditor {
	return &Auditor{logger: logger.Named("audit")}
}

// LogAnalysisRequested records an analysis request. analysisID is the
// analysis that will serve the request, new or existing.
func (a *Auditor) LogAnalysisRequested(ctx context.Context, analysisID uuid.UUID, details AnalysisRequestDetails, clientIP string) {
	event := a.newEvent(ctx, EventAnalysisRequested, analysisID, clientIP, details)

	a.logger.Info("Analysis requested",
		zap.String("event_json", marshal(event)),
		zap.String("organization_id", event.OrganizationID.String()),
		zap.String("analysis_id", analysisID.String()),
		zap.String("process_id", details.ProcessID.String()),
		zap.String("analysis_type", string(details.AnalysisType)),
		zap.Bool("created", details.Created),
		zap.String("user_id", event.UserID),
		zap.String("client_ip", clientIP),
	)
}

// LogRecommendationDecision records a recommendation moving to status.
func (a *Auditor) LogRecommendationDecision(ctx context.Context, recommendationID uuid.UUID, status models.RecommendationStatus, clientIP string) {
	event := a.newEvent(ctx, EventRecommendationDecision, recommendationID, clientIP, map[string]string{
		"status": string(status),
	})

	a.logger.Info("Recommendation status changed",
		zap.String("event_json", marshal(event)),
		zap.String("organization_id", event.OrganizationID.String()),
		zap.String("recommendation_id", recommendationID.String()),
		zap.String("status", string(status)),
		zap.String("user_id", event.UserID),
		zap.String("client_ip", clientIP),
	)
}

func (a *Auditor) newEvent(ctx context.Context, eventType EventType, resourceID uuid.UUID, clientIP string, details any) Event {
	return Event{
		Timestamp:      time.Now().UTC(),
		EventType:      eventType,
		OrganizationID: auth.GetOrganizationIDFromContext(ctx),
		ResourceID:     resourceID,
		UserID:         auth.GetUserIDFromContext(ctx),
		ClientIP:       clientIP,
		Details:        details,
	}
}

// marshal ignores errors; every Event field marshals.
func marshal(event Event) string {
	b, _ := json.Marshal(event)
	return string(b)
}
