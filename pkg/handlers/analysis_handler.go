package handlers

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/processx-inc/processx-engine/pkg/audit"
	"github.com/processx-inc/processx-engine/pkg/auth"
	"github.com/processx-inc/processx-engine/pkg/models"
	"github.com/processx-inc/processx-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// AnalyzeRequest for POST /api/processes/{processId}/analyze
type AnalyzeRequest struct {
	AnalysisType string `json:"analysisType" validate:"required,oneof=FULL PAIN_POINTS RECOMMENDATIONS TARGET_PROCESS"`
}

// AnalyzeResponse reports the analysis that will (or already does) run.
type AnalyzeResponse struct {
	AnalysisID uuid.UUID             `json:"analysisId"`
	Status     models.AnalysisStatus `json:"status"`
}

// AnalysisResponse is the client view of an analysis.
type AnalysisResponse struct {
	ID                 uuid.UUID                        `json:"id"`
	ProcessID          uuid.UUID                        `json:"processId"`
	AnalysisType       models.AnalysisType              `json:"analysisType"`
	Status             models.AnalysisStatus            `json:"status"`
	Understanding      *models.ProcessUnderstanding     `json:"understanding,omitempty"`
	DetectedPainPoints []models.DetectedPainPoint       `json:"detectedPainPoints,omitempty"`
	Recommendations    []models.GeneratedRecommendation `json:"recommendations,omitempty"`
	GeneratedProcess   *models.GeneratedProcess         `json:"generatedProcess,omitempty"`
	Provider           string                           `json:"provider,omitempty"`
	Model              string                           `json:"model,omitempty"`
	ErrorKind          *models.AnalysisErrorKind        `json:"errorKind,omitempty"`
	ErrorMessage       *string                          `json:"errorMessage,omitempty"`
	Attempts           int                              `json:"attempts"`
	CreatedAt          time.Time                        `json:"createdAt"`
	StartedAt          *time.Time                       `json:"startedAt,omitempty"`
	CompletedAt        *time.Time                       `json:"completedAt,omitempty"`
}

func toAnalysisResponse(a *models.AIAnalysis) AnalysisResponse {
	return AnalysisResponse{
		ID:                 a.ID,
		ProcessID:          a.ProcessID,
		AnalysisType:       a.AnalysisType,
		Status:             a.Status,
		Understanding:      a.Understanding,
		DetectedPainPoints: a.DetectedPainPoints,
		Recommendations:    a.Recommendations,
		GeneratedProcess:   a.GeneratedProcess,
		Provider:           a.Provider,
		Model:              a.Model,
		ErrorKind:          a.ErrorKind,
		ErrorMessage:       a.ErrorMessage,
		Attempts:           a.Attempts,
		CreatedAt:          a.CreatedAt,
		StartedAt:          a.StartedAt,
		CompletedAt:        a.CompletedAt,
	}
}

// ============================================================================
// Handler
// ============================================================================

// AnalysisHandler starts analyses and reports their progress.
type AnalysisHandler struct {
	analysisService services.AnalysisService
	auditor         *audit.Auditor
	validate        *validator.Validate
	logger          *zap.Logger
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(analysisService services.AnalysisService, auditor *audit.Auditor, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
		auditor:         auditor,
		validate:        newValidator(),
		logger:          logger,
	}
}

// RegisterRoutes registers the analysis handler's routes on the given mux.
func (h *AnalysisHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	mux.HandleFunc("POST /api/processes/{processId}/analyze",
		authMiddleware.RequireAuth(tenantMiddleware(h.Analyze)))
	mux.HandleFunc("GET /api/processes/{processId}/analyses",
		authMiddleware.RequireAuth(tenantMiddleware(h.ListByProcess)))
	mux.HandleFunc("GET /api/analyses/{analysisId}",
		authMiddleware.RequireAuth(tenantMiddleware(h.Get)))
}

// Analyze handles POST /api/processes/{processId}/analyze
// Returns 202 for a new analysis and 200 when one of the same type is already active.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	processID, ok := ParseProcessID(w, r, h.logger)
	if !ok {
		return
	}

	organizationID, err := auth.RequireOrganizationIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusForbidden, "forbidden", "Missing organization context", h.logger)
		return
	}

	var req AnalyzeRequest
	if !decodeAndValidate(w, r, h.validate, &req, h.logger) {
		return
	}

	analysis, created, err := h.analysisService.RequestAnalysis(r.Context(), organizationID, processID, models.AnalysisType(req.AnalysisType))
	if err != nil {
		writeServiceError(w, err, "request_analysis_failed", h.logger.With(zap.String("process_id", processID.String())))
		return
	}

	h.auditor.LogAnalysisRequested(r.Context(), analysis.ID, audit.AnalysisRequestDetails{
		ProcessID:    processID,
		AnalysisType: analysis.AnalysisType,
		Created:      created,
	}, r.RemoteAddr)

	status := http.StatusAccepted
	if !created {
		status = http.StatusOK
	}
	writeData(w, status, AnalyzeResponse{AnalysisID: analysis.ID, Status: analysis.Status}, h.logger)
}

// Get handles GET /api/analyses/{analysisId}
func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	analysisID, ok := ParseAnalysisID(w, r, h.logger)
	if !ok {
		return
	}

	analysis, err := h.analysisService.GetAnalysis(r.Context(), analysisID)
	if err != nil {
		writeServiceError(w, err, "get_analysis_failed", h.logger.With(zap.String("analysis_id", analysisID.String())))
		return
	}
	writeData(w, http.StatusOK, toAnalysisResponse(analysis), h.logger)
}

// ListByProcess handles GET /api/processes/{processId}/analyses
func (h *AnalysisHandler) ListByProcess(w http.ResponseWriter, r *http.Request) {
	processID, ok := ParseProcessID(w, r, h.logger)
	if !ok {
		return
	}

	analyses, err := h.analysisService.ListByProcess(r.Context(), processID)
	if err != nil {
		writeServiceError(w, err, "list_analyses_failed", h.logger.With(zap.String("process_id", processID.String())))
		return
	}

	out := make([]AnalysisResponse, 0, len(analyses))
	for _, a := range analyses {
		out = append(out, toAnalysisResponse(a))
	}
	writeData(w, http.StatusOK, out, h.logger)
}
