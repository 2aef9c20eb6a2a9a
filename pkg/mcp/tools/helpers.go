package tools

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// trimString removes leading and trailing whitespace from a string.
func trimString(s string) string {
	return strings.TrimSpace(s)
}

// templateIDArg reads the required template_id argument. A malformed id is
// reported as an error result rather than a protocol error.
func templateIDArg(req mcp.CallToolRequest) (uuid.UUID, *mcp.CallToolResult, error) {
	raw, err := req.RequireString("template_id")
	if err != nil {
		return uuid.Nil, nil, err
	}
	id, err := uuid.Parse(trimString(raw))
	if err != nil {
		return uuid.Nil, NewErrorResult("invalid_template_id", fmt.Sprintf("template_id %q is not a UUID", raw)), nil
	}
	return id, nil, nil
}

// stringMapArg reads an optional object argument whose values are strings or
// numbers. Numbers are kept in their decimal form so numeric identifiers
// such as IMO numbers survive JSON decoding.
func stringMapArg(req mcp.CallToolRequest, key string) (map[string]string, error) {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return nil, nil
	}
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an object", key)
	}

	out := make(map[string]string, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = fmt.Sprintf("%.0f", val)
			if val != float64(int64(val)) {
				out[k] = fmt.Sprintf("%g", val)
			}
		default:
			return nil, fmt.Errorf("%s.%s must be a string", key, k)
		}
	}
	return out, nil
}

// getOptionalString returns the string argument key, or "" when absent.
func getOptionalString(req mcp.CallToolRequest, key string) string {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return ""
	}
	val, _ := args[key].(string)
	return val
}
