package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/apperrors"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/classifier"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/placeholder"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/repositories"
)

// BindingStore is the per-template map from placeholder key to binding.
// Readers never observe a partially replaced set.
type BindingStore interface {
	// Get returns the template's bindings; an empty set when none exist.
	Get(ctx context.Context, templateID uuid.UUID) (*models.BindingSet, error)

	// Replace stores the result of a suggestion pass. Operator bindings already
	// stored survive; every other binding is replaced. Returns the stored set.
	Replace(ctx context.Context, set *models.BindingSet) (*models.BindingSet, error)

	// Override sets one binding on behalf of an operator.
	Override(ctx context.Context, templateID uuid.UUID, key string, d models.BindingDescriptor) (*models.BindingEntry, error)
}

type bindingStore struct {
	repo       repositories.BindingRepository
	datasets   repositories.DatasetRepository
	registry   *classifier.Registry
	precedence BindingPrecedence
	locks      sync.Map // uuid.UUID -> *sync.RWMutex
	logger     *zap.Logger
}

var _ BindingStore = (*bindingStore)(nil)

// NewBindingStore creates a BindingStore over repo. datasets may be nil, in
// which case dataset overrides are not checked against the dataset catalog.
func NewBindingStore(
	repo repositories.BindingRepository,
	datasets repositories.DatasetRepository,
	registry *classifier.Registry,
	logger *zap.Logger,
) BindingStore {
	return &bindingStore{
		repo:       repo,
		datasets:   datasets,
		registry:   registry,
		precedence: NewBindingPrecedence(),
		logger:     logger.Named("binding-store"),
	}
}

func (s *bindingStore) lockFor(templateID uuid.UUID) *sync.RWMutex {
	mu, _ := s.locks.LoadOrStore(templateID, &sync.RWMutex{})
	return mu.(*sync.RWMutex)
}

func (s *bindingStore) Get(ctx context.Context, templateID uuid.UUID) (*models.BindingSet, error) {
	mu := s.lockFor(templateID)
	mu.RLock()
	defer mu.RUnlock()

	set, err := s.repo.Get(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("get bindings: %w", err)
	}
	return set, nil
}

func (s *bindingStore) Replace(ctx context.Context, set *models.BindingSet) (*models.BindingSet, error) {
	mu := s.lockFor(set.TemplateID)
	mu.Lock()
	defer mu.Unlock()

	existing, err := s.repo.Get(ctx, set.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("get bindings: %w", err)
	}

	merged := s.merge(existing, set)
	if err := s.repo.Replace(ctx, merged); err != nil {
		return nil, fmt.Errorf("replace bindings: %w", err)
	}
	return merged, nil
}

// merge keeps incoming order. Stored bindings the incoming source may not
// replace win, including those for keys the incoming set no longer has.
func (s *bindingStore) merge(existing, incoming *models.BindingSet) *models.BindingSet {
	merged := &models.BindingSet{TemplateID: incoming.TemplateID}
	kept := 0

	for _, e := range incoming.Entries() {
		if old, ok := existing.Get(e.Key); ok && !s.precedence.CanReplace(old.Source, e.Descriptor.Source) {
			merged.Put(e.Key, old)
			kept++
			continue
		}
		merged.Put(e.Key, e.Descriptor)
	}
	for _, e := range existing.Entries() {
		if _, ok := merged.Get(e.Key); ok {
			continue
		}
		if e.Descriptor.Source == models.BindingSourceOperator {
			merged.Put(e.Key, e.Descriptor)
			kept++
		}
	}

	if kept > 0 {
		s.logger.Info("Kept operator bindings during re-scan",
			zap.String("template_id", incoming.TemplateID.String()),
			zap.Int("kept", kept))
	}
	return merged
}

func (s *bindingStore) Override(ctx context.Context, templateID uuid.UUID, key string, d models.BindingDescriptor) (*models.BindingEntry, error) {
	key = placeholder.Normalize(key)
	if placeholder.IsFallback(key) {
		return nil, fmt.Errorf("%w: placeholder key is empty", apperrors.ErrInvalidBinding)
	}

	d.Source = models.BindingSourceOperator
	d.UpdatedAt = time.Now().UTC()
	if err := s.check(ctx, d); err != nil {
		return nil, err
	}

	mu := s.lockFor(templateID)
	mu.Lock()
	defer mu.Unlock()

	entry := models.BindingEntry{Key: key, Descriptor: d}
	if err := s.repo.Upsert(ctx, templateID, entry); err != nil {
		return nil, fmt.Errorf("upsert binding: %w", err)
	}

	s.logger.Info("Operator binding set",
		zap.String("template_id", templateID.String()),
		zap.String("key", key),
		zap.String("binding", d.String()))
	return &entry, nil
}

// check validates an operator binding against the registry and dataset catalog.
func (s *bindingStore) check(ctx context.Context, d models.BindingDescriptor) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidBinding, err)
	}

	switch d.Kind {
	case models.BindingDatabaseField:
		if !s.registry.HasField(d.EntityType, d.Field) {
			return fmt.Errorf("%w: %s.%s is not a known entity field", apperrors.ErrInvalidBinding, d.EntityType, d.Field)
		}
	case models.BindingDatasetField:
		if s.datasets == nil {
			return nil
		}
		ds, err := s.datasets.Get(ctx, d.DatasetID)
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: dataset %s does not exist", apperrors.ErrInvalidBinding, d.DatasetID)
		}
		if err != nil {
			return fmt.Errorf("get dataset: %w", err)
		}
		if !ds.HasColumn(d.Column) {
			return fmt.Errorf("%w: dataset %s has no column %q", apperrors.ErrInvalidBinding, ds.Name, d.Column)
		}
	}
	return nil
}
