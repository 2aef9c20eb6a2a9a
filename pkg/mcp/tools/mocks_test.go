package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/services"
)

type mockSuggestionService struct {
	report *services.SuggestionReport
	err    error
	asked  []uuid.UUID
}

func (m *mockSuggestionService) SuggestBindings(ctx context.Context, templateID uuid.UUID) (*services.SuggestionReport, error) {
	m.asked = append(m.asked, templateID)
	if m.err != nil {
		return nil, m.err
	}
	if m.report == nil {
		return &services.SuggestionReport{TemplateID: templateID}, nil
	}
	return m.report, nil
}

func (m *mockSuggestionService) Suggest(ctx context.Context, templateID uuid.UUID, keys []string) (*models.BindingSet, []services.Promotion, bool) {
	return models.NewBindingSet(templateID, nil), nil, false
}

type mockBindingStore struct {
	set         *models.BindingSet
	getErr      error
	overrideErr error
	overridden  []models.BindingEntry
}

func (m *mockBindingStore) Get(ctx context.Context, templateID uuid.UUID) (*models.BindingSet, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.set == nil {
		return models.NewBindingSet(templateID, nil), nil
	}
	return m.set, nil
}

func (m *mockBindingStore) Replace(ctx context.Context, set *models.BindingSet) (*models.BindingSet, error) {
	m.set = set
	return set, nil
}

func (m *mockBindingStore) Override(ctx context.Context, templateID uuid.UUID, key string, d models.BindingDescriptor) (*models.BindingEntry, error) {
	if m.overrideErr != nil {
		return nil, m.overrideErr
	}
	d.Source = models.BindingSourceOperator
	entry := models.BindingEntry{Key: key, Descriptor: d}
	m.overridden = append(m.overridden, entry)
	return &entry, nil
}

type mockResolutionService struct {
	res     *services.Resolution
	err     error
	lastReq services.ResolveRequest
}

func (m *mockResolutionService) Resolve(ctx context.Context, req services.ResolveRequest) (*services.Resolution, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.res, nil
}

func (m *mockResolutionService) ResolveKeys(ctx context.Context, req services.ResolveRequest, keys []string, bindings *models.BindingSet) *services.Resolution {
	return m.res
}

var errBoom = errors.New("boom")

// toolCall is the decoded outcome of one tools/call round trip.
type toolCall struct {
	Text          string
	IsError       bool
	ProtocolError string
}

// callTool sends a tools/call through the server the way a client would.
func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) toolCall {
	t.Helper()

	request, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	})
	require.NoError(t, err)

	result := s.HandleMessage(context.Background(), request)
	resultBytes, err := json.Marshal(result)
	require.NoError(t, err)

	var response struct {
		Result struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resultBytes, &response))

	out := toolCall{IsError: response.Result.IsError}
	if response.Error != nil {
		out.ProtocolError = response.Error.Message
	}
	if len(response.Result.Content) > 0 {
		out.Text = response.Result.Content[0].Text
	}
	return out
}

func newToolServer(deps *BindingToolDeps) *server.MCPServer {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	s := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	RegisterBindingTools(s, deps)
	RegisterResolveTool(s, deps)
	return s
}
