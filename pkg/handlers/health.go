package handlers

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/config"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/llm"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/logging"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

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
type HealthResponse = models.HealthStatus

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg       *config.Config
	db        Pinger
	assistant llm.Assistant
	logger    *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. db and assistant may be nil.
func NewHealthHandler(cfg *config.Config, db Pinger, assistant llm.Assistant, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, db: db, assistant: assistant, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Check reports the collaborator states without writing a response.
func (h *HealthHandler) Check(ctx context.Context) HealthResponse {
	resp := models.UnconfiguredHealth()

	if h.db != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Database = "unreachable"
			resp.Error = logging.SanitizeError(err)
		} else {
			resp.Database = "ok"
		}
	}

	if h.assistant != nil {
		if h.assistant.Available() {
			resp.AssistingModel = "available"
		} else {
			resp.AssistingModel = "unavailable"
		}
	}
	return resp
}

// Health handles GET /health requests.
// Returns 503 only when the engine database is unreachable.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := h.Check(r.Context())

	status := http.StatusOK
	if resp.Database == "unreachable" {
		status = http.StatusServiceUnavailable
		h.logger.Warn("Health check failed", zap.String("error", resp.Error))
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
		Service:     "binding-engine",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
