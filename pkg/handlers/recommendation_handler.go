package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/processx-inc/processx-engine/pkg/audit"
	"github.com/processx-inc/processx-engine/pkg/auth"
	"github.com/processx-inc/processx-engine/pkg/models"
	"github.com/processx-inc/processx-engine/pkg/services"
)

// RecommendationHandler lists recommendations and applies review decisions.
type RecommendationHandler struct {
	recommendationService services.RecommendationService
	auditor               *audit.Auditor
	logger                *zap.Logger
}

// NewRecommendationHandler creates a new recommendation handler.
func NewRecommendationHandler(recommendationService services.RecommendationService, auditor *audit.Auditor, logger *zap.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		recommendationService: recommendationService,
		auditor:               auditor,
		logger:                logger,
	}
}

// RegisterRoutes registers the recommendation handler's routes on the given mux.
func (h *RecommendationHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	mux.HandleFunc("GET /api/processes/{processId}/recommendations",
		authMiddleware.RequireAuth(tenantMiddleware(h.List)))
	mux.HandleFunc("POST /api/recommendations/{id}/approve",
		authMiddleware.RequireAuth(tenantMiddleware(h.Approve)))
	mux.HandleFunc("POST /api/recommendations/{id}/reject",
		authMiddleware.RequireAuth(tenantMiddleware(h.Reject)))
	mux.HandleFunc("POST /api/recommendations/{id}/implement",
		authMiddleware.RequireAuth(tenantMiddleware(h.Implement)))
}

// List handles GET /api/processes/{processId}/recommendations?status=
func (h *RecommendationHandler) List(w http.ResponseWriter, r *http.Request) {
	processID, ok := ParseProcessID(w, r, h.logger)
	if !ok {
		return
	}
	status := models.RecommendationStatus(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))))

	recs, err := h.recommendationService.List(r.Context(), processID, status)
	if err != nil {
		writeServiceError(w, err, "list_recommendations_failed", h.logger.With(zap.String("process_id", processID.String())))
		return
	}
	writeData(w, http.StatusOK, recs, h.logger)
}

// Approve handles POST /api/recommendations/{id}/approve
func (h *RecommendationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.recommendationService.Approve)
}

// Reject handles POST /api/recommendations/{id}/reject
func (h *RecommendationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.recommendationService.Reject)
}

// Implement handles POST /api/recommendations/{id}/implement
func (h *RecommendationHandler) Implement(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.recommendationService.MarkImplemented)
}

func (h *RecommendationHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	apply func(context.Context, uuid.UUID) (*models.ProcessRecommendation, error),
) {
	id, ok := ParseRecommendationID(w, r, h.logger)
	if !ok {
		return
	}

	rec, err := apply(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "update_recommendation_failed", h.logger.With(zap.String("recommendation_id", id.String())))
		return
	}
	h.auditor.LogRecommendationDecision(r.Context(), rec.ID, rec.Status, r.RemoteAddr)
	writeData(w, http.StatusOK, rec, h.logger)
}
