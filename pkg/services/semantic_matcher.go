package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/apperrors"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/classifier"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/llm"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/prompts"
)

// SemanticMatcher asks the assisting model to map placeholders the prefix
// classifier could not place. Its answers are advisory and validated against
// the real field and column lists.
type SemanticMatcher interface {
	// Match returns validated bindings keyed by placeholder. used is false
	// when the model was not consulted or no batch got an answer.
	Match(ctx context.Context, keys []string, datasets []*models.Dataset) (matches map[string]models.BindingDescriptor, used bool)
}

// SemanticMatcherConfig tunes batching and latency.
type SemanticMatcherConfig struct {
	BatchSize     int
	Timeout       time.Duration
	MaxConcurrent int
}

type semanticMatcher struct {
	assistant  llm.Assistant
	classifier *classifier.Classifier
	pool       *llm.WorkerPool
	batchSize  int
	timeout    time.Duration
	logger     *zap.Logger
}

var _ SemanticMatcher = (*semanticMatcher)(nil)

// NewSemanticMatcher creates a SemanticMatcher backed by assistant.
func NewSemanticMatcher(assistant llm.Assistant, c *classifier.Classifier, cfg SemanticMatcherConfig, logger *zap.Logger) SemanticMatcher {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 25
	}
	return &semanticMatcher{
		assistant:  assistant,
		classifier: c,
		pool:       llm.NewWorkerPool(llm.WorkerPoolConfig{MaxConcurrent: cfg.MaxConcurrent}, logger),
		batchSize:  cfg.BatchSize,
		timeout:    cfg.Timeout,
		logger:     logger.Named("semantic-matcher"),
	}
}

func (m *semanticMatcher) Match(ctx context.Context, keys []string, datasets []*models.Dataset) (map[string]models.BindingDescriptor, bool) {
	if len(keys) == 0 || m.assistant == nil || !m.assistant.Available() {
		return nil, false
	}

	entities := m.entityContext()
	datasetCtx := datasetContext(datasets)
	system := prompts.BuildBindingMatchSystemMessage()

	var items []llm.WorkItem[[]prompts.BindingMatch]
	for start := 0; start < len(keys); start += m.batchSize {
		batch := keys[start:min(start+m.batchSize, len(keys))]
		items = append(items, llm.WorkItem[[]prompts.BindingMatch]{
			ID: fmt.Sprintf("batch-%d", start/m.batchSize),
			Execute: func(ctx context.Context) ([]prompts.BindingMatch, error) {
				answer, err := m.assistant.Generate(ctx, llm.Request{
					Purpose: "binding_match",
					System:  system,
					Prompt:  prompts.BuildBindingMatchPrompt(batch, entities, datasetCtx),
					Timeout: m.timeout,
				})
				if err != nil {
					return nil, err
				}
				return llm.ParseJSONResponse[[]prompts.BindingMatch](answer)
			},
		})
	}

	asked := make(map[string]bool, len(keys))
	for _, k := range keys {
		asked[k] = true
	}

	matches := make(map[string]models.BindingDescriptor)
	used := false
	for _, result := range llm.Process(ctx, m.pool, items) {
		if result.Err != nil {
			if !errors.Is(result.Err, apperrors.ErrAssistingServiceUnavailable) {
				m.logger.Warn("Discarding unparseable model answer",
					zap.String("batch", result.ID),
					zap.Error(result.Err))
			}
			continue
		}
		used = true
		for _, answer := range result.Result {
			if !asked[answer.Placeholder] {
				continue
			}
			if d, ok := m.validate(answer, datasets); ok {
				matches[answer.Placeholder] = d
			}
		}
	}

	m.logger.Debug("Semantic matching finished",
		zap.Int("asked", len(keys)),
		zap.Int("matched", len(matches)),
		zap.Bool("model_used", used))
	return matches, used
}

// validate accepts a model answer only when it names a real field or column.
// A key whose prefix already names an entity may only map to that entity.
func (m *semanticMatcher) validate(answer prompts.BindingMatch, datasets []*models.Dataset) (models.BindingDescriptor, bool) {
	switch answer.Kind {
	case prompts.MatchKindDatabaseField:
		if !m.classifier.Registry().HasField(answer.EntityType, answer.Field) {
			m.rejected(answer, "unknown entity field")
			return models.BindingDescriptor{}, false
		}
		if cm, ok := m.classifier.Classify(answer.Placeholder); ok && cm.EntityType.Name != answer.EntityType {
			m.rejected(answer, "entity differs from prefix "+cm.EntityType.Name)
			return models.BindingDescriptor{}, false
		}
		return models.DatabaseField(answer.EntityType, answer.Field, models.BindingSourceModel), true

	case prompts.MatchKindDatasetField:
		id, err := uuid.Parse(answer.DatasetID)
		if err != nil {
			m.rejected(answer, "malformed dataset id")
			return models.BindingDescriptor{}, false
		}
		for _, ds := range datasets {
			if ds.ID == id && ds.HasColumn(answer.Column) {
				return models.DatasetField(id, answer.Column, models.BindingSourceModel), true
			}
		}
		m.rejected(answer, "unknown dataset column")
		return models.BindingDescriptor{}, false

	default:
		// synthetic or unrecognised: leave it to the heuristic step
		return models.BindingDescriptor{}, false
	}
}

func (m *semanticMatcher) rejected(answer prompts.BindingMatch, reason string) {
	m.logger.Warn("Rejected model binding",
		zap.String("placeholder", answer.Placeholder),
		zap.String("kind", answer.Kind),
		zap.String("entity_type", answer.EntityType),
		zap.String("field", answer.Field),
		zap.String("dataset_id", answer.DatasetID),
		zap.String("column", answer.Column),
		zap.String("reason", reason))
}

func (m *semanticMatcher) entityContext() []prompts.EntityContext {
	types := m.classifier.Registry().Types()
	out := make([]prompts.EntityContext, 0, len(types))
	for _, et := range types {
		ec := prompts.EntityContext{Name: et.Name}
		for _, f := range et.Fields {
			ec.Fields = append(ec.Fields, prompts.FieldContext{Name: f.Name, Type: string(f.Type), Description: f.Description})
		}
		out = append(out, ec)
	}
	return out
}

func datasetContext(datasets []*models.Dataset) []prompts.DatasetContext {
	out := make([]prompts.DatasetContext, 0, len(datasets))
	for _, ds := range datasets {
		out = append(out, prompts.DatasetContext{ID: ds.ID.String(), Name: ds.Name, Columns: ds.Columns})
	}
	return out
}
