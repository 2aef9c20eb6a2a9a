package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/classifier"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/placeholder"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/repositories"
)

// SuggestionReport summarizes one suggestion pass.
type SuggestionReport struct {
	TemplateID       uuid.UUID                  `json:"template_id"`
	Placeholders     int                        `json:"placeholders"`
	Counts           map[models.BindingKind]int `json:"counts"`
	DatabaseFraction float64                    `json:"database_fraction"`
	Promotions       []Promotion                `json:"promotions"`
	ModelUsed        bool                       `json:"model_used"`
	Bindings         []models.BindingEntry      `json:"bindings"`
	Duration         time.Duration              `json:"duration_ns"`
}

// BindingSuggestionService proposes and stores a binding for every placeholder of a template.
type BindingSuggestionService interface {
	// SuggestBindings runs the suggestion pass for a template and replaces its
	// stored bindings. An unavailable assisting model never makes it fail.
	SuggestBindings(ctx context.Context, templateID uuid.UUID) (*SuggestionReport, error)

	// Suggest runs the pass over already normalized keys without storing anything.
	Suggest(ctx context.Context, templateID uuid.UUID, keys []string) (*models.BindingSet, []Promotion, bool)
}

type bindingSuggestionService struct {
	templates  repositories.TemplateRepository
	datasets   repositories.DatasetRepository
	store      BindingStore
	classifier *classifier.Classifier
	matcher    SemanticMatcher
	logger     *zap.Logger
}

var _ BindingSuggestionService = (*bindingSuggestionService)(nil)

// NewBindingSuggestionService creates a BindingSuggestionService. matcher may
// be nil to run without the model step; datasets may be nil when no datasets exist.
func NewBindingSuggestionService(
	templates repositories.TemplateRepository,
	datasets repositories.DatasetRepository,
	store BindingStore,
	c *classifier.Classifier,
	matcher SemanticMatcher,
	logger *zap.Logger,
) BindingSuggestionService {
	return &bindingSuggestionService{
		templates:  templates,
		datasets:   datasets,
		store:      store,
		classifier: c,
		matcher:    matcher,
		logger:     logger.Named("binding-suggestion"),
	}
}

func (s *bindingSuggestionService) SuggestBindings(ctx context.Context, templateID uuid.UUID) (*SuggestionReport, error) {
	start := time.Now()

	placeholders, err := s.templates.ListPlaceholders(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("list placeholders: %w", err)
	}
	keys := PlaceholderKeys(placeholders)

	proposed, promotions, modelUsed := s.Suggest(ctx, templateID, keys)

	stored, err := s.store.Replace(ctx, proposed)
	if err != nil {
		return nil, fmt.Errorf("store bindings: %w", err)
	}

	report := &SuggestionReport{
		TemplateID:   templateID,
		Placeholders: len(keys),
		Counts:       stored.CountByKind(),
		Promotions:   promotions,
		ModelUsed:    modelUsed,
		Bindings:     stored.Entries(),
		Duration:     time.Since(start),
	}
	if stored.Len() > 0 {
		report.DatabaseFraction = float64(report.Counts[models.BindingDatabaseField]) / float64(stored.Len())
	}

	s.logger.Info("Binding suggestion finished",
		zap.String("template_id", templateID.String()),
		zap.Int("placeholders", report.Placeholders),
		zap.Int("database_field", report.Counts[models.BindingDatabaseField]),
		zap.Int("dataset_field", report.Counts[models.BindingDatasetField]),
		zap.Int("literal", report.Counts[models.BindingLiteral]),
		zap.Int("synthetic", report.Counts[models.BindingSynthetic]),
		zap.Float64("database_fraction", report.DatabaseFraction),
		zap.Int("promotions", len(promotions)),
		zap.Bool("model_used", modelUsed),
		zap.Duration("elapsed", report.Duration))

	return report, nil
}

func (s *bindingSuggestionService) Suggest(ctx context.Context, templateID uuid.UUID, keys []string) (*models.BindingSet, []Promotion, bool) {
	initial := &models.BindingSet{TemplateID: templateID}

	// 1. prefix classifier
	var unmatched []string
	for _, key := range keys {
		if m, ok := s.classifier.Classify(key); ok && m.HasField() {
			initial.Put(key, models.DatabaseField(m.EntityType.Name, m.Field, models.BindingSourcePrefix))
			continue
		}
		unmatched = append(unmatched, key)
	}

	// 2. assisting model
	var modelMatches map[string]models.BindingDescriptor
	modelUsed := false
	if s.matcher != nil && len(unmatched) > 0 {
		modelMatches, modelUsed = s.matcher.Match(ctx, unmatched, s.listDatasets(ctx))
	}

	// 3. heuristic synthetic
	for _, key := range unmatched {
		if d, ok := modelMatches[key]; ok {
			initial.Put(key, d)
			continue
		}
		initial.Put(key, models.Synthetic(placeholder.ClassifyHint(key), models.BindingSourceHeuristic))
	}

	revised, promotions := Rescue(orderedLike(initial, keys), keys, s.classifier)
	return revised, promotions, modelUsed
}

func (s *bindingSuggestionService) listDatasets(ctx context.Context) []*models.Dataset {
	if s.datasets == nil {
		return nil
	}
	datasets, err := s.datasets.List(ctx)
	if err != nil {
		s.logger.Warn("Dataset catalog unavailable, matching entity fields only", zap.Error(err))
		return nil
	}
	return datasets
}

// orderedLike rebuilds set with keys in template order.
func orderedLike(set *models.BindingSet, keys []string) *models.BindingSet {
	out := &models.BindingSet{TemplateID: set.TemplateID}
	for _, k := range keys {
		if d, ok := set.Get(k); ok {
			out.Put(k, d)
		}
	}
	return out
}

// PlaceholderKeys normalizes raw placeholders into unique keys in document order.
func PlaceholderKeys(placeholders []models.Placeholder) []string {
	seen := make(map[string]bool, len(placeholders))
	keys := make([]string, 0, len(placeholders))
	for _, p := range placeholders {
		key := placeholder.Normalize(p.Raw)
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}
