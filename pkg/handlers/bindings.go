package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/apperrors"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// BindingsResponse for GET /api/templates/{tid}/bindings
type BindingsResponse struct {
	TemplateID uuid.UUID                  `json:"template_id"`
	Bindings   []models.BindingEntry      `json:"bindings"`
	Counts     map[models.BindingKind]int `json:"counts"`
	Total      int                        `json:"total"`
}

// OverrideBindingRequest for PUT /api/templates/{tid}/bindings/{key}
type OverrideBindingRequest struct {
	Kind       models.BindingKind      `json:"kind"`
	EntityType string                  `json:"entity_type,omitempty"`
	Field      string                  `json:"field,omitempty"`
	DatasetID  uuid.UUID               `json:"dataset_id,omitempty"`
	Column     string                  `json:"column,omitempty"`
	Literal    string                  `json:"literal,omitempty"`
	Hint       models.SemanticCategory `json:"hint,omitempty"`
}

func (req OverrideBindingRequest) descriptor() models.BindingDescriptor {
	return models.BindingDescriptor{
		Kind:       req.Kind,
		EntityType: req.EntityType,
		Field:      req.Field,
		DatasetID:  req.DatasetID,
		Column:     req.Column,
		Literal:    req.Literal,
		Hint:       req.Hint,
	}
}

// ============================================================================
// Handler
// ============================================================================

// BindingsHandler serves the suggestion pass and the operator binding editor.
type BindingsHandler struct {
	suggestion services.BindingSuggestionService
	store      services.BindingStore
	logger     *zap.Logger
}

// NewBindingsHandler creates a new bindings handler.
func NewBindingsHandler(
	suggestion services.BindingSuggestionService,
	store services.BindingStore,
	logger *zap.Logger,
) *BindingsHandler {
	return &BindingsHandler{
		suggestion: suggestion,
		store:      store,
		logger:     logger,
	}
}

// RegisterRoutes registers the bindings handler's routes on the given mux.
func (h *BindingsHandler) RegisterRoutes(mux *http.ServeMux) {
	base := "/api/templates/{tid}/bindings"

	mux.HandleFunc("POST "+base+"/suggest", h.Suggest)
	mux.HandleFunc("GET "+base, h.List)
	mux.HandleFunc("PUT "+base+"/{key}", h.Override)
}

// Suggest handles POST /api/templates/{tid}/bindings/suggest
func (h *BindingsHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	templateID, ok := ParseTemplateID(w, r, h.logger)
	if !ok {
		return
	}

	report, err := h.suggestion.SuggestBindings(r.Context(), templateID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			writeError(w, http.StatusNotFound, "template_not_found", "Template not found", h.logger)
			return
		}
		h.logger.Error("Failed to suggest bindings",
			zap.String("template_id", templateID.String()),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "suggest_bindings_failed", "Failed to suggest bindings", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: report}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/templates/{tid}/bindings
func (h *BindingsHandler) List(w http.ResponseWriter, r *http.Request) {
	templateID, ok := ParseTemplateID(w, r, h.logger)
	if !ok {
		return
	}

	set, err := h.store.Get(r.Context(), templateID)
	if err != nil {
		h.logger.Error("Failed to get bindings",
			zap.String("template_id", templateID.String()),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get_bindings_failed", "Failed to get bindings", h.logger)
		return
	}

	response := BindingsResponse{
		TemplateID: templateID,
		Bindings:   set.Entries(),
		Counts:     set.CountByKind(),
		Total:      set.Len(),
	}
	if response.Bindings == nil {
		response.Bindings = []models.BindingEntry{}
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Override handles PUT /api/templates/{tid}/bindings/{key}
func (h *BindingsHandler) Override(w http.ResponseWriter, r *http.Request) {
	templateID, ok := ParseTemplateID(w, r, h.logger)
	if !ok {
		return
	}
	key, ok := ParsePlaceholderKey(w, r, h.logger)
	if !ok {
		return
	}

	var req OverrideBindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", h.logger)
		return
	}

	entry, err := h.store.Override(r.Context(), templateID, key, req.descriptor())
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidBinding) {
			writeError(w, http.StatusBadRequest, "invalid_binding", err.Error(), h.logger)
			return
		}
		h.logger.Error("Failed to override binding",
			zap.String("template_id", templateID.String()),
			zap.String("key", key),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "override_binding_failed", "Failed to store binding", h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: entry}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
