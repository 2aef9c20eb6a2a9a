package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/mcp/tools"
)

const instructions = `Binds document template placeholders to data sources and resolves them to text.
Call suggest_bindings after a template is registered or re-scanned, inspect the result with get_bindings,
fix individual placeholders with override_binding, then call resolve_placeholders with entity identifiers.`

// Server wraps the mcp-go MCPServer with the binding engine's tools.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// NewServer creates a new MCP server instance. A panic inside a tool handler
// is turned into a tool error instead of killing the connection.
func NewServer(name, version string, logger *zap.Logger) *Server {
	mcpServer := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	return &Server{
		mcp:    mcpServer,
		logger: logger,
	}
}

// MCP returns the underlying MCPServer for tool registration.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// RegisterEngineTools registers the binding, resolution and health tools.
func (s *Server) RegisterEngineTools(deps *tools.BindingToolDeps, version string, health tools.HealthChecker) {
	tools.RegisterBindingTools(s.mcp, deps)
	tools.RegisterResolveTool(s.mcp, deps)
	tools.RegisterHealthTool(s.mcp, version, health)
	s.logger.Info("Registered MCP tools",
		zap.Strings("tools", []string{"suggest_bindings", "get_bindings", "override_binding", "resolve_placeholders", "health"}))
}

// NewStreamableHTTPServer creates an HTTP transport server wrapping this MCP server.
// The HTTP mux handles routing to /mcp, so no endpoint path is configured here.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}

// RegisterTool is a convenience wrapper for registering a tool.
func (s *Server) RegisterTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, handler)
}
