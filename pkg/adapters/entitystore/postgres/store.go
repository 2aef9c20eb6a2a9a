// Package postgres implements the entity store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/adapters/entitystore"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/apperrors"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/config"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
)

// Dialect renders PostgreSQL identifiers and parameters.
type Dialect struct{}

func (Dialect) QuoteIdent(name string) string { return pgx.Identifier{name}.Sanitize() }
func (Dialect) Placeholder(n int) string      { return fmt.Sprintf("$%d", n) }
func (Dialect) TrueLiteral() string           { return "TRUE" }

func (Dialect) Bound(selectList, rest string, n int) string {
	return fmt.Sprintf("SELECT %s %s LIMIT %d", selectList, rest, n)
}

// Store reads entity records from PostgreSQL.
type Store struct {
	pool      *pgxpool.Pool
	ownedPool bool
	logger    *zap.Logger
}

var _ entitystore.EntityStore = (*Store)(nil)

// NewStore uses cfg.Pool when set and otherwise opens a pool from cfg.DSN.
func NewStore(ctx context.Context, cfg entitystore.Config, logger *zap.Logger) (*Store, error) {
	if cfg.Pool != nil && cfg.DSN == "" {
		return &Store{pool: cfg.Pool, logger: logger.Named("entitystore.postgres")}, nil
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres entity store requires a dsn or a shared pool")
	}

	poolCfg, err := pgxpool.ParseConfig(resolveDSNHost(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("parse entity store dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to entity store: %w", err)
	}
	return &Store{pool: pool, ownedPool: true, logger: logger.Named("entitystore.postgres")}, nil
}

// resolveDSNHost swaps localhost for host.docker.internal in URL-style DSNs
// when running inside a container.
func resolveDSNHost(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Host == "" {
		return dsn
	}
	host := config.ResolveHostForDocker(u.Hostname())
	if port := u.Port(); port != "" {
		u.Host = host + ":" + port
	} else {
		u.Host = host
	}
	return u.String()
}

func (s *Store) FetchEntity(ctx context.Context, et *models.EntityType, id models.Identifier) (models.Record, error) {
	query := entitystore.ByKeyQuery(Dialect{}, et)
	records, err := s.query(ctx, query, id.Value())
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", et.Name, id, err)
	}
	if len(records) == 0 {
		return nil, apperrors.ErrEntityNotFound
	}
	return records[0], nil
}

func (s *Store) FetchPrimaryOwned(ctx context.Context, et *models.EntityType, ownerID models.Identifier) (models.Record, error) {
	query, err := entitystore.PrimaryOwnedQuery(Dialect{}, et)
	if err != nil {
		return nil, err
	}
	records, err := s.query(ctx, query, ownerID.Value())
	if err != nil {
		return nil, fmt.Errorf("fetch primary %s for %s: %w", et.Name, ownerID, err)
	}
	switch len(records) {
	case 0:
		return nil, apperrors.ErrEntityNotFound
	case 1:
		return records[0], nil
	default:
		return nil, apperrors.ErrAmbiguousPrimary
	}
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]models.Record, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []models.Record
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		rec := make(models.Record, len(fields))
		for i, fd := range fields {
			rec[fd.Name] = normalizeValue(values[i])
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeValue converts pgx driver values into plain Go values.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case [16]byte:
		return uuid.UUID(val).String()
	case pgtype.Numeric:
		if !val.Valid {
			return nil
		}
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case pgtype.Time:
		if !val.Valid {
			return nil
		}
		return time.Duration(val.Microseconds * int64(time.Microsecond)).String()
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	if s.ownedPool {
		s.pool.Close()
	}
	return nil
}

// IsNotFound reports whether err is one of the store's "no usable record" outcomes.
func IsNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrEntityNotFound) || errors.Is(err, apperrors.ErrAmbiguousPrimary)
}
