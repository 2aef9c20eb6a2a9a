package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
)

// HealthChecker reports dependency health. The HTTP health handler implements it.
type HealthChecker interface {
	Check(ctx context.Context) models.HealthStatus
}

type healthResult struct {
	models.HealthStatus
	Version string `json:"version"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// The tool returns the server status, dependency states and version.
// A nil checker reports the server as up with nothing configured.
func RegisterHealthTool(s *server.MCPServer, version string, checker HealthChecker) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status, dependency states and version"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status := models.UnconfiguredHealth()
		if checker != nil {
			status = checker.Check(ctx)
		}
		result, err := json.Marshal(healthResult{HealthStatus: status, Version: version})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal health result: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}
