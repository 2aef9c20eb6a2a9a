package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/placeholder"
)

// ParseTemplateID extracts and validates the template ID from the request path.
// Returns the parsed UUID and true on success, or uuid.Nil and false on error
// (after writing an error response).
// Expects path parameter: tid
func ParseTemplateID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "tid", "invalid_template_id", "Invalid template ID format", logger)
}

// ParsePlaceholderKey extracts the placeholder key from the request path and
// normalizes it. Raw tokens ("{{Buyer Name}}") are accepted.
// Expects path parameter: key
func ParsePlaceholderKey(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (string, bool) {
	key := placeholder.Normalize(r.PathValue("key"))
	if placeholder.IsFallback(key) {
		writeError(w, http.StatusBadRequest, "invalid_placeholder_key", "Placeholder key has no letters or digits", logger)
		return "", false
	}
	return key, true
}

// parseUUID is the internal helper that does the actual parsing work.
func parseUUID(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (uuid.UUID, bool) {
	idStr := strings.TrimSpace(r.PathValue(pathParam))
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, errorCode, errorMessage, logger)
		return uuid.Nil, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, statusCode int, errorCode, message string, logger *zap.Logger) {
	if err := ErrorResponse(w, statusCode, errorCode, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
