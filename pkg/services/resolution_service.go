package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/adapters/entitystore"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/apperrors"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/classifier"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/entitycache"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/logging"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/placeholder"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/repositories"
)

// Tier names the precedence step that produced a value.
type Tier string

const (
	TierEntity    Tier = "entity"
	TierBinding   Tier = "binding"
	TierDataset   Tier = "dataset"
	TierSynthetic Tier = "synthetic"
)

// Note codes reported in Resolution.Notes.
const (
	NoteBindingsUnavailable = "bindings_unavailable"
	NoteDatasetsUnavailable = "datasets_unavailable"
	NoteInvalidBinding      = "invalid_binding"
	NoteDatasetMiss         = "dataset_miss"
	NoteNoJoinKey           = "no_join_key"
	NoteModelFallback       = "model_fallback"
)

// Note is a non-fatal condition met while resolving.
type Note struct {
	Key    string `json:"key,omitempty"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

// ResolveRequest is one document generation request.
type ResolveRequest struct {
	TemplateID uuid.UUID
	// Identifiers maps entity type name to its raw identifier.
	Identifiers map[string]string
	// DatasetKeys maps dataset id or name to an explicit row key.
	DatasetKeys map[string]string
	// Seed varies synthetic values between otherwise identical requests.
	Seed string
}

// Resolution holds a value for every placeholder of the template.
type Resolution struct {
	TemplateID uuid.UUID                `json:"template_id"`
	Keys       []string                 `json:"keys"`
	Values     map[string]string        `json:"values"`
	Tiers      map[string]Tier          `json:"tiers"`
	Entities   []entitycache.Diagnostic `json:"entities"`
	Notes      []Note                   `json:"notes"`
	Duration   time.Duration            `json:"duration_ns"`
}

// ResolutionService resolves every placeholder of a template for one request.
type ResolutionService interface {
	// Resolve never leaves a placeholder without a value. It fails only when
	// the template's placeholders cannot be listed.
	Resolve(ctx context.Context, req ResolveRequest) (*Resolution, error)

	// ResolveKeys resolves keys against bindings without reading the template.
	ResolveKeys(ctx context.Context, req ResolveRequest, keys []string, bindings *models.BindingSet) *Resolution
}

// ResolutionConfig tunes model enrichment during resolution.
type ResolutionConfig struct {
	MaxConcurrentEnrichment int
}

type resolutionService struct {
	templates  repositories.TemplateRepository
	store      BindingStore
	datasets   repositories.DatasetRepository
	entities   entitystore.EntityStore
	classifier *classifier.Classifier
	synthetic  *SyntheticGenerator
	maxEnrich  int
	logger     *zap.Logger
}

var _ ResolutionService = (*resolutionService)(nil)

// NewResolutionService creates a ResolutionService. datasets may be nil.
func NewResolutionService(
	templates repositories.TemplateRepository,
	store BindingStore,
	datasets repositories.DatasetRepository,
	entities entitystore.EntityStore,
	c *classifier.Classifier,
	synthetic *SyntheticGenerator,
	cfg ResolutionConfig,
	logger *zap.Logger,
) ResolutionService {
	if cfg.MaxConcurrentEnrichment < 1 {
		cfg.MaxConcurrentEnrichment = 8
	}
	return &resolutionService{
		templates:  templates,
		store:      store,
		datasets:   datasets,
		entities:   entities,
		classifier: c,
		synthetic:  synthetic,
		maxEnrich:  cfg.MaxConcurrentEnrichment,
		logger:     logger.Named("resolution"),
	}
}

func (s *resolutionService) Resolve(ctx context.Context, req ResolveRequest) (*Resolution, error) {
	placeholders, err := s.templates.ListPlaceholders(ctx, req.TemplateID)
	if err != nil {
		s.logger.Error("Cannot list template placeholders",
			zap.String("template_id", req.TemplateID.String()),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("list placeholders: %w", err)
	}

	var notes []Note
	bindings, err := s.store.Get(ctx, req.TemplateID)
	if err != nil {
		s.logger.Warn("Bindings unavailable, resolving without them",
			zap.String("template_id", req.TemplateID.String()),
			zap.String("error", logging.SanitizeError(err)))
		notes = append(notes, Note{Code: NoteBindingsUnavailable, Detail: logging.SanitizeError(err)})
		bindings = &models.BindingSet{TemplateID: req.TemplateID}
	}

	res := s.ResolveKeys(ctx, req, PlaceholderKeys(placeholders), bindings)
	res.Notes = append(notes, res.Notes...)
	return res, nil
}

func (s *resolutionService) ResolveKeys(ctx context.Context, req ResolveRequest, keys []string, bindings *models.BindingSet) *Resolution {
	start := time.Now()
	run := &resolveRun{
		svc:      s,
		req:      req,
		bindings: bindings,
		cache:    entitycache.New(s.entities, s.classifier.Registry(), req.Identifiers, s.logger),
		rows:     make(map[string]rowLookup),
		res: &Resolution{
			TemplateID: req.TemplateID,
			Keys:       keys,
			Values:     make(map[string]string, len(keys)),
			Tiers:      make(map[string]Tier, len(keys)),
		},
	}

	run.loadDatasets(ctx)
	run.cache.Prefetch(ctx, run.neededTypes(keys))

	var synthetic []string
	for _, key := range keys {
		if value, tier, ok := run.resolveData(ctx, key); ok {
			run.set(key, value, tier)
			continue
		}
		synthetic = append(synthetic, key)
	}
	run.fillSynthetic(ctx, synthetic)

	run.res.Entities = run.cache.Diagnostics()
	run.res.Duration = time.Since(start)

	counts := make(map[Tier]int, 4)
	for _, t := range run.res.Tiers {
		counts[t]++
	}
	s.logger.Info("Resolution finished",
		zap.String("template_id", req.TemplateID.String()),
		zap.Int("placeholders", len(keys)),
		zap.Int("entity", counts[TierEntity]),
		zap.Int("binding", counts[TierBinding]),
		zap.Int("dataset", counts[TierDataset]),
		zap.Int("synthetic", counts[TierSynthetic]),
		zap.Duration("elapsed", run.res.Duration))

	return run.res
}

type rowLookup struct {
	row   models.Record
	found bool
}

// resolveRun is the state of one Resolve call.
type resolveRun struct {
	svc      *resolutionService
	req      ResolveRequest
	bindings *models.BindingSet
	cache    *entitycache.Cache
	datasets []*models.Dataset
	byID     map[uuid.UUID]*models.Dataset
	rows     map[string]rowLookup
	res      *Resolution
}

func (r *resolveRun) set(key, value string, tier Tier) {
	r.res.Values[key] = value
	r.res.Tiers[key] = tier
}

func (r *resolveRun) note(key, code, detail string) {
	r.res.Notes = append(r.res.Notes, Note{Key: key, Code: code, Detail: detail})
}

func (r *resolveRun) loadDatasets(ctx context.Context) {
	r.byID = make(map[uuid.UUID]*models.Dataset)
	if r.svc.datasets == nil {
		return
	}
	datasets, err := r.svc.datasets.List(ctx)
	if err != nil {
		r.svc.logger.Warn("Dataset catalog unavailable", zap.String("error", logging.SanitizeError(err)))
		r.note("", NoteDatasetsUnavailable, logging.SanitizeError(err))
		return
	}
	r.datasets = datasets
	for _, ds := range datasets {
		r.byID[ds.ID] = ds
	}
}

// neededTypes lists the entity types any tier may read. Types without an
// identifier are filtered out by the cache.
func (r *resolveRun) neededTypes(keys []string) []*models.EntityType {
	registry := r.svc.classifier.Registry()
	seen := make(map[string]bool)
	var out []*models.EntityType
	add := func(name string) {
		if et, ok := registry.Get(name); ok && !seen[name] {
			seen[name] = true
			out = append(out, et)
		}
	}

	for _, key := range keys {
		if m, ok := r.svc.classifier.Classify(key); ok && m.HasField() {
			add(m.EntityType.Name)
		}
		if d, ok := r.bindings.Get(key); ok && d.Kind == models.BindingDatabaseField {
			add(d.EntityType)
		}
	}
	for _, ds := range r.datasets {
		if ds.KeyEntity != "" {
			add(ds.KeyEntity)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// resolveData runs tiers 1 to 3.
func (r *resolveRun) resolveData(ctx context.Context, key string) (string, Tier, bool) {
	if value, ok := r.entityTier(ctx, key); ok {
		return value, TierEntity, true
	}
	if value, ok := r.bindingTier(ctx, key); ok {
		return value, TierBinding, true
	}
	if value, ok := r.datasetTier(ctx, key); ok {
		return value, TierDataset, true
	}
	return "", "", false
}

// entityTier reads the field named by the key's prefix from the request's
// entities. It runs before stored bindings so request identifiers win.
func (r *resolveRun) entityTier(ctx context.Context, key string) (string, bool) {
	m, ok := r.svc.classifier.Classify(key)
	if !ok || !m.HasField() {
		return "", false
	}
	return r.entityField(ctx, m.EntityType, m.Field)
}

func (r *resolveRun) entityField(ctx context.Context, et *models.EntityType, field string) (string, bool) {
	rec, ok := r.cache.Get(ctx, et)
	if !ok {
		return "", false
	}
	v, _ := rec.Lookup(field)
	return placeholder.ToText(v), true
}

func (r *resolveRun) bindingTier(ctx context.Context, key string) (string, bool) {
	d, ok := r.bindings.Get(key)
	if !ok {
		return "", false
	}

	switch d.Kind {
	case models.BindingDatabaseField:
		et, ok := r.svc.classifier.Registry().Get(d.EntityType)
		if !ok || !et.HasField(d.Field) {
			r.note(key, NoteInvalidBinding, d.String())
			return "", false
		}
		return r.entityField(ctx, et, d.Field)

	case models.BindingDatasetField:
		ds, ok := r.byID[d.DatasetID]
		if !ok || !ds.HasColumn(d.Column) {
			r.note(key, NoteInvalidBinding, d.String())
			return "", false
		}
		row, ok := r.datasetRow(ctx, ds)
		if !ok {
			return "", false
		}
		v, _ := row.Lookup(d.Column)
		return placeholder.ToText(v), true

	case models.BindingLiteral:
		return d.Literal, true
	}
	return "", false
}

// datasetTier searches every dataset for a column named like key, or like
// the key's field suffix when the dataset joins on the key's entity type.
func (r *resolveRun) datasetTier(ctx context.Context, key string) (string, bool) {
	suffix := ""
	entity := ""
	if m, ok := r.svc.classifier.Classify(key); ok {
		suffix = m.Suffix
		entity = m.EntityType.Name
	}

	for _, ds := range r.datasets {
		column := ""
		for _, c := range ds.Columns {
			norm := placeholder.Normalize(c)
			if norm == key || (suffix != "" && ds.KeyEntity == entity && norm == suffix) {
				column = c
				break
			}
		}
		if column == "" {
			continue
		}
		row, ok := r.datasetRow(ctx, ds)
		if !ok {
			continue
		}
		if v, present := row.Lookup(column); present {
			return placeholder.ToText(v), true
		}
	}
	return "", false
}

// joinKey picks the best available key for ds: an explicit request key,
// then the value of the entity field the dataset joins on.
func (r *resolveRun) joinKey(ctx context.Context, ds *models.Dataset) (string, bool) {
	if k := r.req.DatasetKeys[ds.ID.String()]; k != "" {
		return k, true
	}
	if k := r.req.DatasetKeys[ds.Name]; k != "" {
		return k, true
	}
	if ds.KeyEntity == "" || ds.KeyField == "" {
		return "", false
	}
	et, ok := r.svc.classifier.Registry().Get(ds.KeyEntity)
	if !ok {
		return "", false
	}
	value, ok := r.entityField(ctx, et, ds.KeyField)
	return value, ok && value != ""
}

// datasetRow looks a dataset row up at most once per request.
func (r *resolveRun) datasetRow(ctx context.Context, ds *models.Dataset) (models.Record, bool) {
	key, ok := r.joinKey(ctx, ds)
	if !ok {
		return nil, false
	}
	memo := ds.ID.String() + "\x00" + key
	if l, done := r.rows[memo]; done {
		return l.row, l.found
	}

	row, err := r.svc.datasets.Lookup(ctx, ds.ID, key)
	switch {
	case err == nil:
		r.rows[memo] = rowLookup{row: row, found: true}
		return row, true
	case errors.Is(err, apperrors.ErrDatasetMiss):
		r.note("", NoteDatasetMiss, fmt.Sprintf("%s[%s]", ds.Name, key))
	default:
		r.svc.logger.Warn("Dataset lookup failed",
			zap.String("dataset", ds.Name),
			zap.String("error", logging.SanitizeError(err)))
		r.note("", NoteDatasetMiss, fmt.Sprintf("%s[%s]: lookup failed", ds.Name, key))
	}
	r.rows[memo] = rowLookup{}
	return nil, false
}

// fillSynthetic gives every remaining key a synthetic value, enriching them
// concurrently when the model is enabled.
func (r *resolveRun) fillSynthetic(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	gen := r.svc.synthetic
	seed := r.req.TemplateID.String() + ":" + r.req.Seed

	hints := make([]models.SemanticCategory, len(keys))
	for i, key := range keys {
		hints[i] = placeholder.ClassifyHint(key)
		if d, ok := r.bindings.Get(key); ok && d.Kind == models.BindingSynthetic && d.Hint != "" {
			hints[i] = d.Hint
		}
	}

	values := make([]string, len(keys))
	enriched := make([]bool, len(keys))
	if gen.EnrichmentEnabled() {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.svc.maxEnrich)
		for i, key := range keys {
			g.Go(func() error {
				values[i], enriched[i] = gen.Enrich(gctx, hints[i], key, seed)
				return nil
			})
		}
		_ = g.Wait()

		for i, key := range keys {
			if !enriched[i] {
				r.note(key, NoteModelFallback, string(hints[i]))
			}
		}
	} else {
		for i, key := range keys {
			values[i] = gen.Generate(hints[i], key, seed)
		}
	}

	for i, key := range keys {
		r.set(key, values[i], TierSynthetic)
	}
}
