package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/apperrors"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/database"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
)

// DatasetRepository provides access to registered flat datasets and their rows.
type DatasetRepository interface {
	Create(ctx context.Context, ds *models.Dataset) error
	// PutRows upserts rows keyed by their key column value.
	PutRows(ctx context.Context, datasetID uuid.UUID, rows map[string]map[string]any) error
	Get(ctx context.Context, id uuid.UUID) (*models.Dataset, error)
	List(ctx context.Context) ([]*models.Dataset, error)
	// Lookup returns the row whose key equals key, or apperrors.ErrDatasetMiss.
	Lookup(ctx context.Context, datasetID uuid.UUID, key string) (models.Record, error)
}

type datasetRepository struct {
	db *database.DB
}

// NewDatasetRepository creates a new DatasetRepository.
func NewDatasetRepository(db *database.DB) DatasetRepository {
	return &datasetRepository{db: db}
}

var _ DatasetRepository = (*datasetRepository)(nil)

func (r *datasetRepository) Create(ctx context.Context, ds *models.Dataset) error {
	if ds.ID == uuid.Nil {
		ds.ID = uuid.New()
	}
	if ds.CreatedAt.IsZero() {
		ds.CreatedAt = time.Now()
	}
	columns, err := json.Marshal(ds.Columns)
	if err != nil {
		return fmt.Errorf("failed to encode dataset columns: %w", err)
	}

	q := database.QuerierFrom(ctx, r.db)
	_, err = q.Exec(ctx, `
		INSERT INTO engine_datasets (id, name, key_column, key_entity, key_field, columns, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ds.ID, ds.Name, ds.KeyColumn, nullString(ds.KeyEntity), nullString(ds.KeyField), columns, ds.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}
	return nil
}

func (r *datasetRepository) PutRows(ctx context.Context, datasetID uuid.UUID, rows map[string]map[string]any) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for key, data := range rows {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to encode dataset row %q: %w", key, err)
		}
		batch.Queue(`
			INSERT INTO engine_dataset_rows (dataset_id, row_key, data) VALUES ($1, $2, $3)
			ON CONFLICT (dataset_id, row_key) DO UPDATE SET data = EXCLUDED.data`,
			datasetID, key, payload)
	}

	q := database.QuerierFrom(ctx, r.db)
	if err := q.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to store dataset rows: %w", err)
	}
	return nil
}

const datasetColumns = `id, name, key_column, key_entity, key_field, columns, created_at`

func (r *datasetRepository) Get(ctx context.Context, id uuid.UUID) (*models.Dataset, error) {
	q := database.QuerierFrom(ctx, r.db)
	ds, err := scanDataset(q.QueryRow(ctx, `SELECT `+datasetColumns+` FROM engine_datasets WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return ds, nil
}

func (r *datasetRepository) List(ctx context.Context) ([]*models.Dataset, error) {
	q := database.QuerierFrom(ctx, r.db)
	rows, err := q.Query(ctx, `SELECT `+datasetColumns+` FROM engine_datasets ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer rows.Close()

	var out []*models.Dataset
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		out = append(out, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating datasets: %w", err)
	}
	return out, nil
}

func (r *datasetRepository) Lookup(ctx context.Context, datasetID uuid.UUID, key string) (models.Record, error) {
	q := database.QuerierFrom(ctx, r.db)

	var payload []byte
	err := q.QueryRow(ctx,
		`SELECT data FROM engine_dataset_rows WHERE dataset_id = $1 AND row_key = $2`,
		datasetID, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrDatasetMiss
		}
		return nil, fmt.Errorf("failed to look up dataset row: %w", err)
	}

	var rec models.Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode dataset row: %w", err)
	}
	return rec, nil
}

func scanDataset(row pgx.Row) (*models.Dataset, error) {
	var (
		ds                  models.Dataset
		keyEntity, keyField *string
		columns             []byte
	)
	if err := row.Scan(&ds.ID, &ds.Name, &ds.KeyColumn, &keyEntity, &keyField, &columns, &ds.CreatedAt); err != nil {
		return nil, err
	}
	ds.KeyEntity = derefString(keyEntity)
	ds.KeyField = derefString(keyField)
	if len(columns) > 0 {
		if err := json.Unmarshal(columns, &ds.Columns); err != nil {
			return nil, fmt.Errorf("failed to decode dataset columns: %w", err)
		}
	}
	return &ds, nil
}
