package entitycache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/apperrors"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/classifier"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	buyerID = "7d1c1f4e-2b8a-4b7e-9d39-0a6c0c1e5f10"
	bankID  = "c0a80101-0000-4000-8000-000000000001"
)

// stubStore is an in-memory entity store that counts calls per entity type.
type stubStore struct {
	mu           sync.Mutex
	entities     map[string]map[string]models.Record
	primaries    map[string]map[string][]models.Record
	fetchCalls   map[string]int
	primaryCalls map[string]int
	delay        time.Duration
	err          error
}

func newStubStore() *stubStore {
	return &stubStore{
		entities:     make(map[string]map[string]models.Record),
		primaries:    make(map[string]map[string][]models.Record),
		fetchCalls:   make(map[string]int),
		primaryCalls: make(map[string]int),
	}
}

func (s *stubStore) addEntity(entityType, id string, rec models.Record) {
	if s.entities[entityType] == nil {
		s.entities[entityType] = make(map[string]models.Record)
	}
	s.entities[entityType][id] = rec
}

func (s *stubStore) addPrimary(entityType, ownerID string, rec models.Record) {
	if s.primaries[entityType] == nil {
		s.primaries[entityType] = make(map[string][]models.Record)
	}
	s.primaries[entityType][ownerID] = append(s.primaries[entityType][ownerID], rec)
}

func (s *stubStore) FetchEntity(ctx context.Context, et *models.EntityType, id models.Identifier) (models.Record, error) {
	s.mu.Lock()
	s.fetchCalls[et.Name]++
	s.mu.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	rec, ok := s.entities[et.Name][id.String()]
	if !ok {
		return nil, apperrors.ErrEntityNotFound
	}
	return rec, nil
}

func (s *stubStore) FetchPrimaryOwned(ctx context.Context, et *models.EntityType, ownerID models.Identifier) (models.Record, error) {
	s.mu.Lock()
	s.primaryCalls[et.Name]++
	s.mu.Unlock()
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

func (s *stubStore) Close() error { return nil }

func (s *stubStore) fetches(entityType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchCalls[entityType]
}

func (s *stubStore) primaryFetches(entityType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.primaryCalls[entityType]
}

func testRegistry(t *testing.T) *classifier.Registry {
	t.Helper()
	reg, err := classifier.NewRegistry(classifier.DefaultEntityTypes())
	require.NoError(t, err)
	return reg
}

func entityType(t *testing.T, reg *classifier.Registry, name string) *models.EntityType {
	t.Helper()
	et, ok := reg.Get(name)
	require.True(t, ok, name)
	return et
}

func TestGet_FetchesOncePerType(t *testing.T) {
	reg := testRegistry(t)
	store := newStubStore()
	store.addEntity("vessel", "42", models.Record{"id": int64(42), "name": "Nordic Star"})

	cache := New(store, reg, map[string]string{"vessel": "42"}, zap.NewNop())
	vessel := entityType(t, reg, "vessel")

	rec, ok := cache.Get(context.Background(), vessel)
	require.True(t, ok)
	assert.Equal(t, "Nordic Star", rec["name"])

	rec, ok = cache.Get(context.Background(), vessel)
	require.True(t, ok)
	assert.Equal(t, "Nordic Star", rec["name"])

	assert.Equal(t, 1, store.fetches("vessel"))
}

func TestGet_ConcurrentFirstAccessSharesOneFetch(t *testing.T) {
	reg := testRegistry(t)
	store := newStubStore()
	store.delay = 20 * time.Millisecond
	store.addEntity("vessel", "42", models.Record{"name": "Nordic Star"})

	cache := New(store, reg, map[string]string{"vessel": "42"}, zap.NewNop())
	vessel := entityType(t, reg, "vessel")

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := cache.Get(context.Background(), vessel)
			assert.True(t, ok)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.fetches("vessel"))
}

func TestGet_NotFoundIsCached(t *testing.T) {
	reg := testRegistry(t)
	store := newStubStore()

	cache := New(store, reg, map[string]string{"vessel": "99"}, zap.NewNop())
	vessel := entityType(t, reg, "vessel")

	_, ok := cache.Get(context.Background(), vessel)
	assert.False(t, ok)
	_, ok = cache.Get(context.Background(), vessel)
	assert.False(t, ok)

	assert.Equal(t, 1, store.fetches("vessel"))
	assert.Equal(t, []Diagnostic{{EntityType: "vessel", Outcome: OutcomeNotFound}}, cache.Diagnostics())
}

func TestGet_WithoutIdentifierNeverTouchesStore(t *testing.T) {
	reg := testRegistry(t)
	store := newStubStore()
	cache := New(store, reg, nil, zap.NewNop())

	for _, et := range reg.Types() {
		_, ok := cache.Get(context.Background(), et)
		assert.False(t, ok, et.Name)
		assert.False(t, cache.Fetchable(et), et.Name)
	}
	assert.Empty(t, store.fetchCalls)
	assert.Empty(t, store.primaryCalls)
	assert.Empty(t, cache.Diagnostics())
}

func TestGet_OwnedByExplicitIdentifier(t *testing.T) {
	reg := testRegistry(t)
	store := newStubStore()
	store.addEntity("buyer", buyerID, models.Record{"name": "Acme Trading"})
	store.addEntity("buyer_bank", bankID, models.Record{"swift_code": "DEUTDEFF"})
	store.addPrimary("buyer_bank", buyerID, models.Record{"swift_code": "OTHERXXX"})

	cache := New(store, reg, map[string]string{"buyer": buyerID, "buyer_bank": bankID}, zap.NewNop())

	rec, ok := cache.Get(context.Background(), entityType(t, reg, "buyer_bank"))
	require.True(t, ok)
	assert.Equal(t, "DEUTDEFF", rec["swift_code"])
	assert.Equal(t, 0, store.primaryFetches("buyer_bank"))
}

func TestGet_OwnedViaPrimaryFlag(t *testing.T) {
	reg := testRegistry(t)
	store := newStubStore()
	store.addEntity("buyer", buyerID, models.Record{"name": "Acme Trading"})
	store.addPrimary("buyer_bank", buyerID, models.Record{"swift_code": "DEUTDEFF"})

	cache := New(store, reg, map[string]string{"buyer": buyerID}, zap.NewNop())
	bank := entityType(t, reg, "buyer_bank")
	require.True(t, cache.Fetchable(bank))

	rec, ok := cache.Get(context.Background(), bank)
	require.True(t, ok)
	assert.Equal(t, "DEUTDEFF", rec["swift_code"])

	_, _ = cache.Get(context.Background(), bank)
	assert.Equal(t, 1, store.primaryFetches("buyer_bank"))
	assert.Equal(t, 1, store.fetches("buyer"))
	assert.Equal(t, 0, store.fetches("buyer_bank"))
}

func TestGet_AmbiguousPrimaryIsNotFound(t *testing.T) {
	reg := testRegistry(t)
	store := newStubStore()
	store.addEntity("buyer", buyerID, models.Record{"name": "Acme Trading"})
	store.addPrimary("buyer_bank", buyerID, models.Record{"swift_code": "AAAAAAAA"})
	store.addPrimary("buyer_bank", buyerID, models.Record{"swift_code": "BBBBBBBB"})

	cache := New(store, reg, map[string]string{"buyer": buyerID}, zap.NewNop())

	rec, ok := cache.Get(context.Background(), entityType(t, reg, "buyer_bank"))
	assert.False(t, ok)
	assert.Nil(t, rec)
	assert.Contains(t, cache.Diagnostics(), Diagnostic{EntityType: "buyer_bank", Outcome: OutcomeAmbiguousPrimary})
}

func TestGet_OwnedWithMissingOwnerSkipsPrimaryLookup(t *testing.T) {
	reg := testRegistry(t)
	store := newStubStore()
	store.addPrimary("seller_bank", buyerID, models.Record{"swift_code": "DEUTDEFF"})

	cache := New(store, reg, map[string]string{"seller": buyerID}, zap.NewNop())

	_, ok := cache.Get(context.Background(), entityType(t, reg, "seller_bank"))
	assert.False(t, ok)
	assert.Equal(t, 1, store.fetches("seller"))
	assert.Equal(t, 0, store.primaryFetches("seller_bank"))
}

func TestGet_StoreFailureIsAbsorbed(t *testing.T) {
	reg := testRegistry(t)
	store := newStubStore()
	store.err = errors.New("connection refused")

	cache := New(store, reg, map[string]string{"vessel": "42"}, zap.NewNop())
	vessel := entityType(t, reg, "vessel")

	_, ok := cache.Get(context.Background(), vessel)
	assert.False(t, ok)
	_, ok = cache.Get(context.Background(), vessel)
	assert.False(t, ok)

	assert.Equal(t, 1, store.fetches("vessel"))
	diags := cache.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, OutcomeFetchFailed, diags[0].Outcome)
}

func TestNew_InvalidIdentifiersCountAsNotSupplied(t *testing.T) {
	reg := testRegistry(t)
	store := newStubStore()

	cache := New(store, reg, map[string]string{
		"vessel":    "not-a-number",
		"buyer":     "1' OR '1'='1",
		"spaceship": "1",
		"product":   "12",
	}, zap.NewNop())

	_, ok := cache.Identifier("vessel")
	assert.False(t, ok)
	_, ok = cache.Identifier("buyer")
	assert.False(t, ok)
	id, ok := cache.Identifier("product")
	require.True(t, ok)
	assert.Equal(t, int64(12), id.Int)

	_, found := cache.Get(context.Background(), entityType(t, reg, "buyer"))
	assert.False(t, found)
	assert.Equal(t, 0, store.fetches("buyer"))

	diags := cache.Diagnostics()
	require.Len(t, diags, 3)
	assert.Equal(t, "buyer", diags[0].EntityType)
	assert.Equal(t, OutcomeInvalidIdentifier, diags[0].Outcome)
	assert.Equal(t, "spaceship", diags[1].EntityType)
	assert.Equal(t, OutcomeUnknownEntityType, diags[1].Outcome)
	assert.Equal(t, "vessel", diags[2].EntityType)
	assert.Equal(t, OutcomeInvalidIdentifier, diags[2].Outcome)
}

func TestPrefetch(t *testing.T) {
	reg := testRegistry(t)
	store := newStubStore()
	store.delay = 5 * time.Millisecond
	store.addEntity("vessel", "42", models.Record{"name": "Nordic Star"})
	store.addEntity("buyer", buyerID, models.Record{"name": "Acme Trading"})
	store.addPrimary("buyer_bank", buyerID, models.Record{"swift_code": "DEUTDEFF"})

	cache := New(store, reg, map[string]string{"vessel": "42", "buyer": buyerID}, zap.NewNop())
	cache.Prefetch(context.Background(), reg.Types())

	assert.Equal(t, 1, store.fetches("vessel"))
	assert.Equal(t, 1, store.fetches("buyer"))
	assert.Equal(t, 1, store.primaryFetches("buyer_bank"))
	assert.Equal(t, 0, store.fetches("seller"))
	assert.Equal(t, 0, store.primaryFetches("seller_bank"))

	rec, ok := cache.Get(context.Background(), entityType(t, reg, "buyer_bank"))
	require.True(t, ok)
	assert.Equal(t, "DEUTDEFF", rec["swift_code"])
	assert.Equal(t, 1, store.primaryFetches("buyer_bank"))
}
