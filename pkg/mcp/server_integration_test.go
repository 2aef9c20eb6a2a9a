package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/middleware"
)

// TestServer_HTTPContextPropagation verifies that the request id assigned by the
// HTTP middleware reaches MCP tool handlers through the request context.
func TestServer_HTTPContextPropagation(t *testing.T) {
	var receivedID string

	s := NewServer("binding-engine", "1.0.0", zap.NewNop())

	tool := mcp.NewTool("test-request-id", mcp.WithDescription("Test tool that reads the request id from context"))
	s.RegisterTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		receivedID = middleware.RequestID(ctx)
		return mcp.NewToolResultText("ok"), nil
	})

	handler := middleware.RequestLogger(zap.NewNop())(middleware.MCPRequestLogger(zap.NewNop())(s.NewStreamableHTTPServer()))

	toolCallRequest := map[string]any{
		"jsonrpc": "2.0",
		"method":  "tools/call",
		"params": map[string]any{
			"name": "test-request-id",
		},
		"id": 1,
	}
	body, _ := json.Marshal(toolCallRequest)

	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.RequestIDHeader, "resolve-run-7")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if receivedID != "resolve-run-7" {
		t.Errorf("expected request id %q in tool context, got %q", "resolve-run-7", receivedID)
	}
}
