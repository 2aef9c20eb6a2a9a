package tools

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/apperrors"
)

// ErrorResponse represents a structured error in tool results.
// Returning it as a successful tool result keeps the error details visible to
// the calling agent instead of being swallowed by the MCP client.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for errors the caller can fix (bad template id, invalid binding).
//
// Do NOT use this for system failures (store unreachable); those still
// return Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
//
// Example:
//
//	return NewErrorResultWithDetails(
//	    "invalid_binding",
//	    "buyer.shoe_size is not a known entity field",
//	    map[string]any{"valid_fields": []string{"name", "address", "city"}},
//	), nil
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// actionableError converts caller-fixable errors into an error result.
// It returns nil for errors that should surface as protocol errors.
func actionableError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return NewErrorResult("template_not_found", "no template with that id is registered")
	case errors.Is(err, apperrors.ErrInvalidBinding):
		return NewErrorResult("invalid_binding", err.Error())
	}
	return nil
}
