package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
)

type stubHealthChecker struct {
	resp models.HealthStatus
}

func (s stubHealthChecker) Check(ctx context.Context) models.HealthStatus { return s.resp }

func TestHealthTool_Execute(t *testing.T) {
	tests := []struct {
		name    string
		checker HealthChecker
		want    models.HealthStatus
	}{
		{
			name:    "no checker",
			checker: nil,
			want:    models.HealthStatus{Status: "ok", Database: "not_configured", AssistingModel: "disabled"},
		},
		{
			name:    "degraded database",
			checker: stubHealthChecker{resp: models.HealthStatus{Status: "degraded", Database: "unreachable", AssistingModel: "available"}},
			want:    models.HealthStatus{Status: "degraded", Database: "unreachable", AssistingModel: "available"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
			RegisterHealthTool(s, "1.2.3", tt.checker)

			out := callTool(t, s, "health", nil)

			var result healthResult
			require.NoError(t, json.Unmarshal([]byte(out.Text), &result))
			assert.Equal(t, "1.2.3", result.Version)
			assert.Equal(t, tt.want, result.HealthStatus)
		})
	}
}
