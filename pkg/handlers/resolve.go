package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/apperrors"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/services"
)

// ResolveRequest for POST /api/templates/{tid}/resolve
type ResolveRequest struct {
	Identifiers map[string]string `json:"identifiers"`
	DatasetKeys map[string]string `json:"dataset_keys,omitempty"`
	Seed        string            `json:"seed,omitempty"`
}

// ResolveHandler serves document-generation requests.
type ResolveHandler struct {
	resolution services.ResolutionService
	logger     *zap.Logger
}

// NewResolveHandler creates a new resolve handler.
func NewResolveHandler(resolution services.ResolutionService, logger *zap.Logger) *ResolveHandler {
	return &ResolveHandler{resolution: resolution, logger: logger}
}

// RegisterRoutes registers the resolve handler's routes on the given mux.
func (h *ResolveHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/templates/{tid}/resolve", h.Resolve)
}

// Resolve handles POST /api/templates/{tid}/resolve.
// An empty body resolves without identifiers.
func (h *ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	templateID, ok := ParseTemplateID(w, r, h.logger)
	if !ok {
		return
	}

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", h.logger)
		return
	}

	res, err := h.resolution.Resolve(r.Context(), services.ResolveRequest{
		TemplateID:  templateID,
		Identifiers: req.Identifiers,
		DatasetKeys: req.DatasetKeys,
		Seed:        req.Seed,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			writeError(w, http.StatusNotFound, "template_not_found", "Template not found", h.logger)
			return
		}
		writeError(w, http.StatusInternalServerError, "resolve_failed", "Failed to resolve placeholders", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: res}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
