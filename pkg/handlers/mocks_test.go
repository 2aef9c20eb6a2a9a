package handlers

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/apperrors"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/services"
)

// ============================================================================
// Mock Implementations
// ============================================================================

type mockSuggestionService struct {
	report *services.SuggestionReport
	err    error
	calls  int
}

func (m *mockSuggestionService) SuggestBindings(ctx context.Context, templateID uuid.UUID) (*services.SuggestionReport, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.report == nil {
		return &services.SuggestionReport{TemplateID: templateID}, nil
	}
	return m.report, nil
}

func (m *mockSuggestionService) Suggest(ctx context.Context, templateID uuid.UUID, keys []string) (*models.BindingSet, []services.Promotion, bool) {
	return &models.BindingSet{TemplateID: templateID}, nil, false
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
		return &models.BindingSet{TemplateID: templateID}, nil
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

type mockTemplateRepository struct {
	templates    map[uuid.UUID]*models.Template
	placeholders map[uuid.UUID][]models.Placeholder
	createErr    error
}

func newMockTemplateRepository() *mockTemplateRepository {
	return &mockTemplateRepository{
		templates:    make(map[uuid.UUID]*models.Template),
		placeholders: make(map[uuid.UUID][]models.Placeholder),
	}
}

func (m *mockTemplateRepository) Create(ctx context.Context, tpl *models.Template, rawTokens []string) error {
	if m.createErr != nil {
		return m.createErr
	}
	if tpl.ID == uuid.Nil {
		tpl.ID = uuid.New()
	}
	m.templates[tpl.ID] = tpl
	return m.ReplacePlaceholders(ctx, tpl.ID, rawTokens)
}

func (m *mockTemplateRepository) Get(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	tpl, ok := m.templates[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return tpl, nil
}

func (m *mockTemplateRepository) ListPlaceholders(ctx context.Context, templateID uuid.UUID) ([]models.Placeholder, error) {
	if _, ok := m.templates[templateID]; !ok {
		return nil, apperrors.ErrNotFound
	}
	return m.placeholders[templateID], nil
}

func (m *mockTemplateRepository) ReplacePlaceholders(ctx context.Context, templateID uuid.UUID, rawTokens []string) error {
	out := make([]models.Placeholder, len(rawTokens))
	for i, tok := range rawTokens {
		out[i] = models.Placeholder{Position: i, Raw: tok}
	}
	m.placeholders[templateID] = out
	return nil
}

func (m *mockTemplateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.templates[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.templates, id)
	return nil
}

type mockDatasetRepository struct {
	datasets []*models.Dataset
	rows     map[uuid.UUID]map[string]map[string]any
}

func newMockDatasetRepository() *mockDatasetRepository {
	return &mockDatasetRepository{rows: make(map[uuid.UUID]map[string]map[string]any)}
}

func (m *mockDatasetRepository) Create(ctx context.Context, ds *models.Dataset) error {
	if ds.ID == uuid.Nil {
		ds.ID = uuid.New()
	}
	m.datasets = append(m.datasets, ds)
	return nil
}

func (m *mockDatasetRepository) PutRows(ctx context.Context, datasetID uuid.UUID, rows map[string]map[string]any) error {
	m.rows[datasetID] = rows
	return nil
}

func (m *mockDatasetRepository) Get(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
	for _, ds := range m.datasets {
		if ds.ID == id {
			return ds, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockDatasetRepository) List(ctx context.Context) ([]*models.Dataset, error) {
	return m.datasets, nil
}

func (m *mockDatasetRepository) Lookup(ctx context.Context, datasetID uuid.UUID, key string) (models.Record, error) {
	row, ok := m.rows[datasetID][key]
	if !ok {
		return nil, apperrors.ErrDatasetMiss
	}
	return row, nil
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

var errBoom = errors.New("boom")
