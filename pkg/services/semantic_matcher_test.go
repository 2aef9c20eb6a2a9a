package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/llm"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
)

func TestSemanticMatcher_ValidatesAnswers(t *testing.T) {
	datasetID := uuid.New()
	datasets := []*models.Dataset{
		{ID: datasetID, Name: "vessel_particulars", KeyColumn: "imo", Columns: []string{"imo", "ice_class"}},
	}

	answer := fmt.Sprintf(`Here is the mapping:
`+"```json"+`
[
  {"placeholder": "signatory", "kind": "database_field", "entity_type": "buyer", "field": "representative_name"},
  {"placeholder": "ice_class", "kind": "dataset_field", "dataset_id": %q, "column": "ice_class"},
  {"placeholder": "hull_colour", "kind": "database_field", "entity_type": "vessel", "field": "hull_colour"},
  {"placeholder": "buyer_favourite_port", "kind": "database_field", "entity_type": "seller", "field": "city"},
  {"placeholder": "beam_width", "kind": "dataset_field", "dataset_id": "not-a-uuid", "column": "beam"},
  {"placeholder": "remarks", "kind": "synthetic"},
  {"placeholder": "never_asked", "kind": "database_field", "entity_type": "vessel", "field": "name"}
]
`+"```", datasetID)

	assistant := &fakeAssistant{respond: func(llm.Request) (string, error) { return answer, nil }}
	matcher := NewSemanticMatcher(assistant, newTestClassifier(t), SemanticMatcherConfig{}, zap.NewNop())

	keys := []string{"signatory", "ice_class", "hull_colour", "buyer_favourite_port", "beam_width", "remarks"}
	matches, used := matcher.Match(context.Background(), keys, datasets)

	assert.True(t, used)
	assert.Equal(t, map[string]models.BindingDescriptor{
		"signatory": models.DatabaseField("buyer", "representative_name", models.BindingSourceModel),
		"ice_class": models.DatasetField(datasetID, "ice_class", models.BindingSourceModel),
	}, matches)

	require.Equal(t, 1, assistant.calls())
	assert.Equal(t, "binding_match", assistant.requests[0].Purpose)
	assert.Contains(t, assistant.requests[0].Prompt, "vessel_particulars")
}

func TestSemanticMatcher_Batches(t *testing.T) {
	assistant := &fakeAssistant{respond: func(llm.Request) (string, error) { return "[]", nil }}
	matcher := NewSemanticMatcher(assistant, newTestClassifier(t), SemanticMatcherConfig{BatchSize: 2, MaxConcurrent: 2}, zap.NewNop())

	keys := []string{"a_one", "b_two", "c_three", "d_four", "e_five"}
	matches, used := matcher.Match(context.Background(), keys, nil)

	assert.True(t, used)
	assert.Empty(t, matches)
	assert.Equal(t, 3, assistant.calls())
}

func TestSemanticMatcher_Unavailable(t *testing.T) {
	tests := []struct {
		name      string
		assistant llm.Assistant
	}{
		{name: "nil assistant", assistant: nil},
		{name: "breaker open", assistant: &fakeAssistant{unavailable: true}},
		{name: "provider disabled", assistant: llm.NewAssistant(nil, llm.AssistantConfig{}, zap.NewNop())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matcher := NewSemanticMatcher(tt.assistant, newTestClassifier(t), SemanticMatcherConfig{}, zap.NewNop())
			matches, used := matcher.Match(context.Background(), []string{"signatory"}, nil)
			assert.False(t, used)
			assert.Empty(t, matches)
		})
	}
}

func TestSemanticMatcher_FailuresAreNotFatal(t *testing.T) {
	tests := []struct {
		name    string
		respond func(llm.Request) (string, error)
	}{
		{name: "prose answer", respond: func(llm.Request) (string, error) { return "I cannot help with that.", nil }},
		{name: "assistant error", respond: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assistant := &fakeAssistant{respond: tt.respond}
			matcher := NewSemanticMatcher(assistant, newTestClassifier(t), SemanticMatcherConfig{}, zap.NewNop())
			matches, used := matcher.Match(context.Background(), []string{"signatory"}, nil)
			assert.False(t, used)
			assert.Empty(t, matches)
		})
	}
}

func TestSemanticMatcher_SlowModelTimesOut(t *testing.T) {
	client := llm.NewMockLLMClient()
	client.GenerateResponseFunc = func(ctx context.Context, _, _ string, _ float64) (*llm.GenerateResponseResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	assistant := llm.NewAssistant(client, llm.AssistantConfig{DefaultTimeout: 20 * time.Millisecond}, zap.NewNop())
	matcher := NewSemanticMatcher(assistant, newTestClassifier(t), SemanticMatcherConfig{}, zap.NewNop())

	start := time.Now()
	matches, used := matcher.Match(context.Background(), []string{"signatory"}, nil)

	assert.False(t, used)
	assert.Empty(t, matches)
	assert.Less(t, time.Since(start), 2*time.Second)
}
