package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/processx-inc/processx-engine/pkg/auth"
	"github.com/processx-inc/processx-engine/pkg/services"
)

// ProcessHandler serves computed and derived views of a process.
type ProcessHandler struct {
	processService services.ProcessService
	logger         *zap.Logger
}

// NewProcessHandler creates a new process handler.
func NewProcessHandler(processService services.ProcessService, logger *zap.Logger) *ProcessHandler {
	return &ProcessHandler{
		processService: processService,
		logger:         logger,
	}
}

// RegisterRoutes registers the process handler's routes on the given mux.
func (h *ProcessHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	base := "/api/processes/{processId}"

	mux.HandleFunc("GET "+base+"/metrics",
		authMiddleware.RequireAuth(tenantMiddleware(h.Metrics)))
	mux.HandleFunc("GET "+base+"/pain-points",
		authMiddleware.RequireAuth(tenantMiddleware(h.PainPoints)))
	mux.HandleFunc("GET "+base+"/target-processes",
		authMiddleware.RequireAuth(tenantMiddleware(h.TargetProcesses)))
}

// Metrics handles GET /api/processes/{processId}/metrics
func (h *ProcessHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	processID, ok := ParseProcessID(w, r, h.logger)
	if !ok {
		return
	}

	health, err := h.processService.GetHealth(r.Context(), processID)
	if err != nil {
		writeServiceError(w, err, "get_metrics_failed", h.logger.With(zap.String("process_id", processID.String())))
		return
	}
	writeData(w, http.StatusOK, health, h.logger)
}

// PainPoints handles GET /api/processes/{processId}/pain-points
func (h *ProcessHandler) PainPoints(w http.ResponseWriter, r *http.Request) {
	processID, ok := ParseProcessID(w, r, h.logger)
	if !ok {
		return
	}

	pps, err := h.processService.ListPainPoints(r.Context(), processID)
	if err != nil {
		writeServiceError(w, err, "list_pain_points_failed", h.logger.With(zap.String("process_id", processID.String())))
		return
	}
	writeData(w, http.StatusOK, pps, h.logger)
}

// TargetProcesses handles GET /api/processes/{processId}/target-processes
func (h *ProcessHandler) TargetProcesses(w http.ResponseWriter, r *http.Request) {
	processID, ok := ParseProcessID(w, r, h.logger)
	if !ok {
		return
	}

	tps, err := h.processService.ListTargetProcesses(r.Context(), processID)
	if err != nil {
		writeServiceError(w, err, "list_target_processes_failed", h.logger.With(zap.String("process_id", processID.String())))
		return
	}
	writeData(w, http.StatusOK, tps, h.logger)
}
