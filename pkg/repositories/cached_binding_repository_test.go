package repositories

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
)

// memoryBindingRepository is an in-memory BindingRepository that counts reads.
// afterRead, when set, runs once a read has taken its snapshot.
type memoryBindingRepository struct {
	mu        sync.Mutex
	sets      map[uuid.UUID]*models.BindingSet
	reads     int
	afterRead func()
}

func newMemoryBindingRepository() *memoryBindingRepository {
	return &memoryBindingRepository{sets: make(map[uuid.UUID]*models.BindingSet)}
}

func (m *memoryBindingRepository) Get(ctx context.Context, templateID uuid.UUID) (*models.BindingSet, error) {
	m.mu.Lock()
	m.reads++
	snapshot := &models.BindingSet{TemplateID: templateID}
	if s, ok := m.sets[templateID]; ok {
		snapshot = s.Clone()
	}
	hook := m.afterRead
	m.afterRead = nil
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	return snapshot, nil
}

func (m *memoryBindingRepository) Replace(ctx context.Context, set *models.BindingSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[set.TemplateID] = set.Clone()
	return nil
}

func (m *memoryBindingRepository) Upsert(ctx context.Context, templateID uuid.UUID, entry models.BindingEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sets[templateID]
	if !ok {
		s = &models.BindingSet{TemplateID: templateID}
		m.sets[templateID] = s
	}
	s.Put(entry.Key, entry.Descriptor)
	return nil
}

func TestCachedBindingRepository_ServesRepeatedReadsFromMemory(t *testing.T) {
	inner := newMemoryBindingRepository()
	repo := NewCachedBindingRepository(inner, 8, nil, time.Minute, zap.NewNop())
	ctx := context.Background()
	tid := uuid.New()

	require.NoError(t, repo.Replace(ctx, models.NewBindingSet(tid, []models.BindingEntry{
		{Key: "buyer_name", Descriptor: models.DatabaseField("buyer", "name", models.BindingSourcePrefix)},
	})))

	for i := 0; i < 3; i++ {
		set, err := repo.Get(ctx, tid)
		require.NoError(t, err)
		assert.Equal(t, 1, set.Len())
	}
	assert.Equal(t, 1, inner.reads)
}

func TestCachedBindingRepository_WritesInvalidate(t *testing.T) {
	inner := newMemoryBindingRepository()
	repo := NewCachedBindingRepository(inner, 8, nil, time.Minute, zap.NewNop())
	ctx := context.Background()
	tid := uuid.New()

	_, err := repo.Get(ctx, tid)
	require.NoError(t, err)

	require.NoError(t, repo.Upsert(ctx, tid, models.BindingEntry{Key: "incoterm", Descriptor: models.Literal("FOB")}))

	set, err := repo.Get(ctx, tid)
	require.NoError(t, err)
	d, ok := set.Get("incoterm")
	require.True(t, ok)
	assert.Equal(t, "FOB", d.Literal)
	assert.Equal(t, 2, inner.reads)
}

func TestCachedBindingRepository_ReturnsIndependentCopies(t *testing.T) {
	inner := newMemoryBindingRepository()
	repo := NewCachedBindingRepository(inner, 8, nil, time.Minute, zap.NewNop())
	ctx := context.Background()
	tid := uuid.New()

	set, err := repo.Get(ctx, tid)
	require.NoError(t, err)
	set.Put("mutated", models.Literal("x"))

	again, err := repo.Get(ctx, tid)
	require.NoError(t, err)
	_, ok := again.Get("mutated")
	assert.False(t, ok)
}
