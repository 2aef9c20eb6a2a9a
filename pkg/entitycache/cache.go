// Package entitycache holds the entity records of one resolution request.
//
// A Cache fetches each entity type at most once. Owned sub-entities without
// their own identifier are found through their owner's identifier and the
// primary flag. Every miss is cached so later lookups never hit the store again.
package entitycache

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/adapters/entitystore"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/apperrors"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/classifier"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/logging"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/sql"
)

// Outcome describes how a lookup for one entity type ended.
type Outcome string

const (
	OutcomeFound             Outcome = "found"
	OutcomeNotSupplied       Outcome = "not_supplied"
	OutcomeNotFound          Outcome = "not_found"
	OutcomeAmbiguousPrimary  Outcome = "ambiguous_primary"
	OutcomeFetchFailed       Outcome = "fetch_failed"
	OutcomeInvalidIdentifier Outcome = "invalid_identifier"
	OutcomeUnknownEntityType Outcome = "unknown_entity_type"
)

// Diagnostic records a lookup that produced no record for a reason worth reporting.
type Diagnostic struct {
	EntityType string  `json:"entity_type"`
	Outcome    Outcome `json:"outcome"`
	Detail     string  `json:"detail,omitempty"`
}

type slot struct {
	once    sync.Once
	record  models.Record
	outcome Outcome
}

// Cache is request scoped. It is safe for concurrent use.
type Cache struct {
	store    entitystore.EntityStore
	registry *classifier.Registry
	logger   *zap.Logger
	ids      map[string]models.Identifier

	mu          sync.Mutex
	slots       map[string]*slot
	diagnostics []Diagnostic
}

// New parses the raw request identifiers (keyed by entity type name) and
// returns an empty cache. Identifiers that fail validation count as not
// supplied and are reported in Diagnostics.
func New(store entitystore.EntityStore, registry *classifier.Registry, identifiers map[string]string, logger *zap.Logger) *Cache {
	c := &Cache{
		store:    store,
		registry: registry,
		logger:   logger.Named("entitycache"),
		ids:      make(map[string]models.Identifier, len(identifiers)),
		slots:    make(map[string]*slot),
	}

	for name, raw := range identifiers {
		et, ok := registry.Get(name)
		if !ok {
			c.addDiagnostic(Diagnostic{EntityType: name, Outcome: OutcomeUnknownEntityType})
			continue
		}
		id, err := models.ParseIdentifier(et.KeyKind, raw)
		if err != nil {
			c.addDiagnostic(Diagnostic{EntityType: name, Outcome: OutcomeInvalidIdentifier, Detail: err.Error()})
			continue
		}
		if id.Kind == models.KeyKindOpaque {
			if hit := sql.CheckValue(name, id.Opaque); hit != nil {
				c.logger.Warn("Rejected identifier that looks like SQL injection",
					zap.String("entity_type", name),
					zap.String("fingerprint", hit.Fingerprint))
				c.addDiagnostic(Diagnostic{EntityType: name, Outcome: OutcomeInvalidIdentifier, Detail: "rejected by injection screening"})
				continue
			}
		}
		c.ids[name] = id
	}
	return c
}

// Identifier returns the validated identifier supplied for entityType.
func (c *Cache) Identifier(entityType string) (models.Identifier, bool) {
	id, ok := c.ids[entityType]
	return id, ok
}

// Get returns the record for et, fetching it on first use.
// Concurrent first calls for the same type share a single fetch.
func (c *Cache) Get(ctx context.Context, et *models.EntityType) (models.Record, bool) {
	s := c.slotFor(et.Name)
	s.once.Do(func() {
		s.record, s.outcome = c.fetch(ctx, et)
	})
	return s.record, s.outcome == OutcomeFound
}

// Prefetch resolves every type in types concurrently. Types that could never
// be fetched (no identifier, no resolvable owner) are skipped without a store call.
func (c *Cache) Prefetch(ctx context.Context, types []*models.EntityType) {
	g, gctx := errgroup.WithContext(ctx)
	for _, et := range types {
		if !c.Fetchable(et) {
			continue
		}
		g.Go(func() error {
			c.Get(gctx, et)
			return nil
		})
	}
	_ = g.Wait()
}

// Fetchable reports whether et has an identifier, directly or through its owner.
func (c *Cache) Fetchable(et *models.EntityType) bool {
	if _, ok := c.ids[et.Name]; ok {
		return true
	}
	if et.Owner == nil {
		return false
	}
	_, ok := c.ids[et.Owner.EntityType]
	return ok
}

// Diagnostics returns the recorded diagnostics sorted by entity type.
func (c *Cache) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.diagnostics))
	copy(out, c.diagnostics)
	sort.SliceStable(out, func(i, j int) bool { return out[i].EntityType < out[j].EntityType })
	return out
}

func (c *Cache) slotFor(name string) *slot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[name]
	if !ok {
		s = &slot{}
		c.slots[name] = s
	}
	return s
}

func (c *Cache) addDiagnostic(d Diagnostic) {
	c.mu.Lock()
	c.diagnostics = append(c.diagnostics, d)
	c.mu.Unlock()
}

func (c *Cache) fetch(ctx context.Context, et *models.EntityType) (models.Record, Outcome) {
	if id, ok := c.ids[et.Name]; ok {
		rec, err := c.store.FetchEntity(ctx, et, id)
		return c.settle(et, rec, err)
	}
	if et.Owner == nil {
		return nil, OutcomeNotSupplied
	}

	owner, ok := c.registry.Get(et.Owner.EntityType)
	if !ok {
		return nil, OutcomeNotSupplied
	}
	ownerID, ok := c.ids[owner.Name]
	if !ok {
		return nil, OutcomeNotSupplied
	}
	if _, found := c.Get(ctx, owner); !found {
		return nil, OutcomeNotSupplied
	}

	rec, err := c.store.FetchPrimaryOwned(ctx, et, ownerID)
	return c.settle(et, rec, err)
}

func (c *Cache) settle(et *models.EntityType, rec models.Record, err error) (models.Record, Outcome) {
	switch {
	case err == nil:
		return rec, OutcomeFound
	case errors.Is(err, apperrors.ErrEntityNotFound):
		c.logger.Debug("Entity not found", zap.String("entity_type", et.Name))
		c.addDiagnostic(Diagnostic{EntityType: et.Name, Outcome: OutcomeNotFound})
		return nil, OutcomeNotFound
	case errors.Is(err, apperrors.ErrAmbiguousPrimary):
		c.logger.Warn("Primary record is ambiguous, treating as not found",
			zap.String("entity_type", et.Name),
			zap.String("owner_type", et.Owner.EntityType))
		c.addDiagnostic(Diagnostic{EntityType: et.Name, Outcome: OutcomeAmbiguousPrimary})
		return nil, OutcomeAmbiguousPrimary
	default:
		c.logger.Warn("Entity fetch failed, treating as not found",
			zap.String("entity_type", et.Name),
			zap.String("error", logging.SanitizeError(err)))
		c.addDiagnostic(Diagnostic{EntityType: et.Name, Outcome: OutcomeFetchFailed, Detail: logging.SanitizeError(err)})
		return nil, OutcomeFetchFailed
	}
}
