// Package entitystore fetches entity records from the relational backing store.
// Backends register themselves from init() in their sub-packages.
package entitystore

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
)

// EntityStore is the read-only view of the relational store used during resolution.
// Implementations make exactly one round trip per call and never retry.
type EntityStore interface {
	// FetchEntity returns the record of et whose key equals id.
	// Returns apperrors.ErrEntityNotFound when no row matches.
	FetchEntity(ctx context.Context, et *models.EntityType, id models.Identifier) (models.Record, error)

	// FetchPrimaryOwned returns the single record of the owned type et that
	// belongs to ownerID and carries the primary flag.
	// Returns apperrors.ErrEntityNotFound when none is flagged and
	// apperrors.ErrAmbiguousPrimary when more than one is.
	FetchPrimaryOwned(ctx context.Context, et *models.EntityType, ownerID models.Identifier) (models.Record, error)

	// Close releases resources owned by the store.
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Type string // "postgres" or "mssql"
	DSN  string // connection string; optional for postgres when Pool is set

	// Pool lets the postgres backend share the engine's connection pool
	// when entities live in the same database.
	Pool *pgxpool.Pool

	MaxOpenConns int
}
