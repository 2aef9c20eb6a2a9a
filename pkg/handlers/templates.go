package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/apperrors"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/repositories"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/services"
)

// CreateTemplateRequest for POST /api/templates.
// Placeholders are the raw tokens in document order, as found by the document parser.
type CreateTemplateRequest struct {
	Name         string   `json:"name"`
	Placeholders []string `json:"placeholders"`
}

// RescanTemplateRequest for PUT /api/templates/{tid}/placeholders
type RescanTemplateRequest struct {
	Placeholders []string `json:"placeholders"`
}

// TemplateResponse pairs a template with the suggestion pass run on upload.
type TemplateResponse struct {
	Template   *models.Template           `json:"template"`
	Suggestion *services.SuggestionReport `json:"suggestion,omitempty"`
}

// TemplateHandler registers templates and re-runs suggestion on upload and re-scan.
type TemplateHandler struct {
	templates  repositories.TemplateRepository
	suggestion services.BindingSuggestionService
	logger     *zap.Logger
}

// NewTemplateHandler creates a new template handler.
func NewTemplateHandler(
	templates repositories.TemplateRepository,
	suggestion services.BindingSuggestionService,
	logger *zap.Logger,
) *TemplateHandler {
	return &TemplateHandler{templates: templates, suggestion: suggestion, logger: logger}
}

// RegisterRoutes registers the template handler's routes on the given mux.
func (h *TemplateHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/templates", h.Create)
	mux.HandleFunc("GET /api/templates/{tid}", h.Get)
	mux.HandleFunc("PUT /api/templates/{tid}/placeholders", h.Rescan)
	mux.HandleFunc("DELETE /api/templates/{tid}", h.Delete)
}

// Create handles POST /api/templates
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", h.logger)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "Template name is required", h.logger)
		return
	}

	tpl := &models.Template{Name: req.Name}
	if err := h.templates.Create(r.Context(), tpl, req.Placeholders); err != nil {
		h.logger.Error("Failed to create template", zap.String("name", req.Name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "create_template_failed", "Failed to create template", h.logger)
		return
	}

	report := h.suggest(r, tpl)
	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: TemplateResponse{Template: tpl, Suggestion: report}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/templates/{tid}
func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	templateID, ok := ParseTemplateID(w, r, h.logger)
	if !ok {
		return
	}

	tpl, err := h.templates.Get(r.Context(), templateID)
	if err != nil {
		h.writeLookupError(w, err, templateID.String())
		return
	}
	placeholders, err := h.templates.ListPlaceholders(r.Context(), templateID)
	if err != nil {
		h.writeLookupError(w, err, templateID.String())
		return
	}

	data := map[string]any{
		"template":     tpl,
		"placeholders": placeholders,
		"keys":         services.PlaceholderKeys(placeholders),
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Rescan handles PUT /api/templates/{tid}/placeholders
func (h *TemplateHandler) Rescan(w http.ResponseWriter, r *http.Request) {
	templateID, ok := ParseTemplateID(w, r, h.logger)
	if !ok {
		return
	}

	var req RescanTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", h.logger)
		return
	}

	tpl, err := h.templates.Get(r.Context(), templateID)
	if err != nil {
		h.writeLookupError(w, err, templateID.String())
		return
	}
	if err := h.templates.ReplacePlaceholders(r.Context(), templateID, req.Placeholders); err != nil {
		h.writeLookupError(w, err, templateID.String())
		return
	}

	report := h.suggest(r, tpl)
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: TemplateResponse{Template: tpl, Suggestion: report}}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/templates/{tid}
func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	templateID, ok := ParseTemplateID(w, r, h.logger)
	if !ok {
		return
	}
	if err := h.templates.Delete(r.Context(), templateID); err != nil {
		h.writeLookupError(w, err, templateID.String())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// suggest runs the suggestion pass after an upload. A failure is logged and
// reported as a missing suggestion; the template itself is stored.
func (h *TemplateHandler) suggest(r *http.Request, tpl *models.Template) *services.SuggestionReport {
	report, err := h.suggestion.SuggestBindings(r.Context(), tpl.ID)
	if err != nil {
		h.logger.Error("Suggestion pass failed after upload",
			zap.String("template_id", tpl.ID.String()),
			zap.Error(err))
		return nil
	}
	return report
}

func (h *TemplateHandler) writeLookupError(w http.ResponseWriter, err error, templateID string) {
	if errors.Is(err, apperrors.ErrNotFound) {
		writeError(w, http.StatusNotFound, "template_not_found", "Template not found", h.logger)
		return
	}
	h.logger.Error("Template operation failed", zap.String("template_id", templateID), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "template_failed", "Template operation failed", h.logger)
}
