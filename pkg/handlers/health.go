package handlers

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/processx-inc/processx-engine/pkg/config"
	"github.com/processx-inc/processx-engine/pkg/services/workqueue"
)

const healthCheckTimeout = 2 * time.Second

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string              `json:"status"`
	Database string              `json:"database,omitempty"`
	Analyses *workqueue.Progress `json:"analyses,omitempty"`
}

// Pinger checks a dependency is reachable. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// AnalysisStats reports this instance's background analysis counters.
type AnalysisStats interface {
	Stats() workqueue.Progress
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg    *config.Config
	db     Pinger
	stats  AnalysisStats
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. db and stats may be nil; a nil
// db skips the database check and a nil stats omits the analyses block.
func NewHealthHandler(cfg *config.Config, db Pinger, stats AnalysisStats, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, db: db, stats: stats, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health requests.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status, resp := http.StatusOK, HealthResponse{Status: "ok"}
	if h.stats != nil {
		progress := h.stats.Stats()
		resp.Analyses = &progress
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		resp.Database = "ok"
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("Database health check failed", zap.Error(err))
			status, resp.Status, resp.Database = http.StatusServiceUnavailable, "degraded", "unreachable"
		}
	}

	if err := WriteJSON(w, status, resp); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}

// Ping handles GET /ping requests.
// Returns detailed service information including version and environment.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "processx-engine",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
