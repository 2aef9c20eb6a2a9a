package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
)

// localBindingTTL bounds how long one process may serve a set another process replaced.
const localBindingTTL = 30 * time.Second

// bindingVersionTTL outlives any read in flight; an expired counter reads as a
// new version, which only makes a racing fill skip.
const bindingVersionTTL = 24 * time.Hour

var errStaleBindingSet = errors.New("binding set changed during read")

// cachedBindingRepository fronts a BindingRepository with an in-process LRU and,
// when a client is given, a Redis layer shared between processes.
// Writes go to the database first and then drop both cache layers. Every write
// also bumps a per-template version in Redis; a fill read before that bump is
// not stored.
type cachedBindingRepository struct {
	next   BindingRepository
	local  *expirable.LRU[uuid.UUID, *models.BindingSet]
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedBindingRepository wraps next. rdb may be nil.
func NewCachedBindingRepository(next BindingRepository, size int, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) BindingRepository {
	return &cachedBindingRepository{
		next:   next,
		local:  expirable.NewLRU[uuid.UUID, *models.BindingSet](size, nil, localBindingTTL),
		redis:  rdb,
		ttl:    ttl,
		logger: logger.Named("binding_cache"),
	}
}

var _ BindingRepository = (*cachedBindingRepository)(nil)

type cachedBindingSet struct {
	TemplateID uuid.UUID             `json:"template_id"`
	Entries    []models.BindingEntry `json:"entries"`
}

func redisBindingKey(templateID uuid.UUID) string {
	return "bindings:" + templateID.String()
}

func redisBindingVersionKey(templateID uuid.UUID) string {
	return "bindings:version:" + templateID.String()
}

func (r *cachedBindingRepository) Get(ctx context.Context, templateID uuid.UUID) (*models.BindingSet, error) {
	if set, ok := r.local.Get(templateID); ok {
		return set.Clone(), nil
	}

	if set, ok := r.getShared(ctx, templateID); ok {
		r.local.Add(templateID, set)
		return set.Clone(), nil
	}

	version, versionOK := r.sharedVersion(ctx, templateID)
	set, err := r.next.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}
	r.local.Add(templateID, set.Clone())
	if versionOK {
		r.putShared(ctx, set, version)
	}
	return set, nil
}

func (r *cachedBindingRepository) Replace(ctx context.Context, set *models.BindingSet) error {
	if err := r.next.Replace(ctx, set); err != nil {
		return err
	}
	r.invalidate(ctx, set.TemplateID)
	return nil
}

func (r *cachedBindingRepository) Upsert(ctx context.Context, templateID uuid.UUID, entry models.BindingEntry) error {
	if err := r.next.Upsert(ctx, templateID, entry); err != nil {
		return err
	}
	r.invalidate(ctx, templateID)
	return nil
}

func (r *cachedBindingRepository) invalidate(ctx context.Context, templateID uuid.UUID) {
	r.local.Remove(templateID)
	if r.redis == nil {
		return
	}
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, redisBindingVersionKey(templateID))
		pipe.Expire(ctx, redisBindingVersionKey(templateID), bindingVersionTTL)
		pipe.Del(ctx, redisBindingKey(templateID))
		return nil
	})
	if err != nil {
		r.logger.Warn("Failed to drop shared binding cache entry",
			zap.String("template_id", templateID.String()), zap.Error(err))
	}
}

func (r *cachedBindingRepository) getShared(ctx context.Context, templateID uuid.UUID) (*models.BindingSet, bool) {
	if r.redis == nil {
		return nil, false
	}
	raw, err := r.redis.Get(ctx, redisBindingKey(templateID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("Shared binding cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var cached cachedBindingSet
	if err := json.Unmarshal(raw, &cached); err != nil {
		r.logger.Warn("Discarding undecodable shared binding cache entry", zap.Error(err))
		return nil, false
	}
	return models.NewBindingSet(cached.TemplateID, cached.Entries), true
}

// sharedVersion reads the template's write counter. ok is false when Redis is
// off or unreachable; the caller then skips the shared fill.
func (r *cachedBindingRepository) sharedVersion(ctx context.Context, templateID uuid.UUID) (string, bool) {
	if r.redis == nil {
		return "", false
	}
	version, err := readBindingVersion(ctx, r.redis, templateID)
	if err != nil {
		r.logger.Warn("Shared binding version read failed", zap.Error(err))
		return "", false
	}
	return version, true
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readBindingVersion(ctx context.Context, c stringGetter, templateID uuid.UUID) (string, error) {
	v, err := c.Get(ctx, redisBindingVersionKey(templateID)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return v, err
}

// putShared stores set only while the template's version still equals the one
// read before the database read.
func (r *cachedBindingRepository) putShared(ctx context.Context, set *models.BindingSet, version string) {
	raw, err := json.Marshal(cachedBindingSet{TemplateID: set.TemplateID, Entries: set.Entries()})
	if err != nil {
		r.logger.Warn("Failed to encode binding set for shared cache", zap.Error(err))
		return
	}

	key := redisBindingKey(set.TemplateID)
	err = r.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readBindingVersion(ctx, tx, set.TemplateID)
		if err != nil {
			return err
		}
		if current != version {
			return errStaleBindingSet
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, r.ttl)
			return nil
		})
		return err
	}, redisBindingVersionKey(set.TemplateID))

	switch {
	case err == nil:
	case errors.Is(err, errStaleBindingSet), errors.Is(err, redis.TxFailedErr):
		r.logger.Debug("Skipped shared fill for a binding set written meanwhile",
			zap.String("template_id", set.TemplateID.String()))
	default:
		r.logger.Warn("Shared binding cache write failed", zap.Error(fmt.Errorf("set %s: %w", key, err)))
	}
}
