package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/apperrors"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/classifier"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/llm"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/repositories"
)

func newTestClassifier(t *testing.T) *classifier.Classifier {
	t.Helper()
	registry, err := classifier.NewRegistry(classifier.DefaultEntityTypes())
	require.NoError(t, err)
	c, err := classifier.New(registry, classifier.DefaultRules(), zap.NewNop())
	require.NoError(t, err)
	return c
}

func rawPlaceholders(tokens ...string) []models.Placeholder {
	out := make([]models.Placeholder, len(tokens))
	for i, tok := range tokens {
		out[i] = models.Placeholder{Position: i, Raw: tok}
	}
	return out
}

// mockTemplateRepository serves placeholders from memory.
type mockTemplateRepository struct {
	placeholders map[uuid.UUID][]models.Placeholder
	listErr      error
}

var _ repositories.TemplateRepository = (*mockTemplateRepository)(nil)

func newMockTemplateRepository() *mockTemplateRepository {
	return &mockTemplateRepository{placeholders: make(map[uuid.UUID][]models.Placeholder)}
}

func (m *mockTemplateRepository) Create(ctx context.Context, tpl *models.Template, rawTokens []string) error {
	return m.ReplacePlaceholders(ctx, tpl.ID, rawTokens)
}

func (m *mockTemplateRepository) Get(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	if _, ok := m.placeholders[id]; !ok {
		return nil, apperrors.ErrNotFound
	}
	return &models.Template{ID: id}, nil
}

func (m *mockTemplateRepository) ListPlaceholders(ctx context.Context, templateID uuid.UUID) ([]models.Placeholder, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	p, ok := m.placeholders[templateID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return p, nil
}

func (m *mockTemplateRepository) ReplacePlaceholders(ctx context.Context, templateID uuid.UUID, rawTokens []string) error {
	m.placeholders[templateID] = rawPlaceholders(rawTokens...)
	return nil
}

func (m *mockTemplateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.placeholders, id)
	return nil
}

// mockBindingRepository keeps binding sets in memory.
type mockBindingRepository struct {
	mu       sync.Mutex
	sets     map[uuid.UUID]*models.BindingSet
	getErr   error
	replaces int
}

var _ repositories.BindingRepository = (*mockBindingRepository)(nil)

func newMockBindingRepository() *mockBindingRepository {
	return &mockBindingRepository{sets: make(map[uuid.UUID]*models.BindingSet)}
}

func (m *mockBindingRepository) Get(ctx context.Context, templateID uuid.UUID) (*models.BindingSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if set, ok := m.sets[templateID]; ok {
		return set.Clone(), nil
	}
	return &models.BindingSet{TemplateID: templateID}, nil
}

func (m *mockBindingRepository) Replace(ctx context.Context, set *models.BindingSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaces++
	m.sets[set.TemplateID] = set.Clone()
	return nil
}

func (m *mockBindingRepository) Upsert(ctx context.Context, templateID uuid.UUID, entry models.BindingEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[templateID]
	if !ok {
		set = &models.BindingSet{TemplateID: templateID}
		m.sets[templateID] = set
	}
	set.Put(entry.Key, entry.Descriptor)
	return nil
}

// mockDatasetRepository serves datasets and rows from memory and counts lookups.
type mockDatasetRepository struct {
	mu       sync.Mutex
	datasets []*models.Dataset
	rows     map[uuid.UUID]map[string]models.Record
	lookups  int
	listErr  error
}

var _ repositories.DatasetRepository = (*mockDatasetRepository)(nil)

func newMockDatasetRepository() *mockDatasetRepository {
	return &mockDatasetRepository{rows: make(map[uuid.UUID]map[string]models.Record)}
}

func (m *mockDatasetRepository) Create(ctx context.Context, ds *models.Dataset) error {
	m.datasets = append(m.datasets, ds)
	return nil
}

func (m *mockDatasetRepository) PutRows(ctx context.Context, datasetID uuid.UUID, rows map[string]map[string]any) error {
	if m.rows[datasetID] == nil {
		m.rows[datasetID] = make(map[string]models.Record)
	}
	for k, row := range rows {
		m.rows[datasetID][k] = row
	}
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
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.datasets, nil
}

func (m *mockDatasetRepository) Lookup(ctx context.Context, datasetID uuid.UUID, key string) (models.Record, error) {
	m.mu.Lock()
	m.lookups++
	m.mu.Unlock()
	row, ok := m.rows[datasetID][key]
	if !ok {
		return nil, apperrors.ErrDatasetMiss
	}
	return row, nil
}

// mockEntityStore is an in-memory entity store that counts calls per entity type.
type mockEntityStore struct {
	mu           sync.Mutex
	entities     map[string]map[string]models.Record
	primaries    map[string]map[string][]models.Record
	fetchCalls   map[string]int
	primaryCalls map[string]int
}

func newMockEntityStore() *mockEntityStore {
	return &mockEntityStore{
		entities:     make(map[string]map[string]models.Record),
		primaries:    make(map[string]map[string][]models.Record),
		fetchCalls:   make(map[string]int),
		primaryCalls: make(map[string]int),
	}
}

func (s *mockEntityStore) addEntity(entityType, id string, rec models.Record) {
	if s.entities[entityType] == nil {
		s.entities[entityType] = make(map[string]models.Record)
	}
	s.entities[entityType][id] = rec
}

func (s *mockEntityStore) addPrimary(entityType, ownerID string, rec models.Record) {
	if s.primaries[entityType] == nil {
		s.primaries[entityType] = make(map[string][]models.Record)
	}
	s.primaries[entityType][ownerID] = append(s.primaries[entityType][ownerID], rec)
}

func (s *mockEntityStore) FetchEntity(ctx context.Context, et *models.EntityType, id models.Identifier) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchCalls[et.Name]++
	rec, ok := s.entities[et.Name][id.String()]
	if !ok {
		return nil, apperrors.ErrEntityNotFound
	}
	return rec, nil
}

func (s *mockEntityStore) FetchPrimaryOwned(ctx context.Context, et *models.EntityType, ownerID models.Identifier) (models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.primaryCalls[et.Name]++
	recs := s.primaries[et.Name][ownerID.String()]
	switch len(recs) {
	case 0:
		return nil, apperrors.ErrEntityNotFound
	case 1:
		return recs[0], nil
	default:
		return nil, apperrors.ErrAmbiguousPrimary
	}
}

func (s *mockEntityStore) Close() error { return nil }

func (s *mockEntityStore) calls(entityType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchCalls[entityType] + s.primaryCalls[entityType]
}

// stubMatcher returns fixed matches and records what it was asked.
type stubMatcher struct {
	matches map[string]models.BindingDescriptor
	used    bool
	asked   []string
}

func (m *stubMatcher) Match(ctx context.Context, keys []string, datasets []*models.Dataset) (map[string]models.BindingDescriptor, bool) {
	m.asked = append(m.asked, keys...)
	return m.matches, m.used
}

// fakeAssistant answers every request with respond and records the requests.
type fakeAssistant struct {
	mu          sync.Mutex
	unavailable bool
	respond     func(req llm.Request) (string, error)
	requests    []llm.Request
}

var _ llm.Assistant = (*fakeAssistant)(nil)

func (a *fakeAssistant) Generate(ctx context.Context, req llm.Request) (string, error) {
	a.mu.Lock()
	a.requests = append(a.requests, req)
	a.mu.Unlock()
	if a.respond == nil {
		return "", apperrors.ErrAssistingServiceUnavailable
	}
	return a.respond(req)
}

func (a *fakeAssistant) Available() bool { return !a.unavailable }

func (a *fakeAssistant) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}
