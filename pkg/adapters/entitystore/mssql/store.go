// Package mssql implements the entity store on SQL Server through go-mssqldb.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/adapters/entitystore"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/apperrors"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/config"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
)

// Dialect renders SQL Server identifiers and parameters.
type Dialect struct{}

// QuoteIdent brackets an identifier, escaping ] as ]].
func (Dialect) QuoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (Dialect) Placeholder(n int) string { return fmt.Sprintf("@p%d", n) }
func (Dialect) TrueLiteral() string      { return "1" }

func (Dialect) Bound(selectList, rest string, n int) string {
	return fmt.Sprintf("SELECT TOP (%d) %s %s", n, selectList, rest)
}

// Store reads entity records from SQL Server.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ entitystore.EntityStore = (*Store)(nil)

// NewStore opens a connection pool for a sqlserver:// DSN.
func NewStore(ctx context.Context, cfg entitystore.Config, logger *zap.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("mssql entity store requires a dsn")
	}
	dsn, err := resolveDSNHost(cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("open entity store connection: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to entity store: %w", err)
	}
	return &Store{db: db, logger: logger.Named("entitystore.mssql")}, nil
}

func resolveDSNHost(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse entity store dsn: %w", err)
	}
	if u.Scheme != "sqlserver" {
		return "", fmt.Errorf("entity store dsn must use the sqlserver:// scheme")
	}
	host := config.ResolveHostForDocker(u.Hostname())
	if port := u.Port(); port != "" {
		u.Host = host + ":" + port
	} else {
		u.Host = host
	}
	return u.String(), nil
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
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("read column types: %w", err)
	}

	var out []models.Record
	for rows.Next() {
		values := make([]any, len(colTypes))
		ptrs := make([]any, len(colTypes))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec := make(models.Record, len(colTypes))
		for i, ct := range colTypes {
			rec[ct.Name()] = normalizeValue(ct.DatabaseTypeName(), values[i])
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeValue converts raw driver bytes into plain Go values based on the column type.
func normalizeValue(dbType string, v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	switch strings.ToUpper(dbType) {
	case "UNIQUEIDENTIFIER":
		var id mssql.UniqueIdentifier
		if err := id.Scan(b); err != nil {
			return nil
		}
		return strings.ToLower(id.String())
	case "DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY":
		f, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return string(b)
		}
		return f
	default:
		return string(b)
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}
