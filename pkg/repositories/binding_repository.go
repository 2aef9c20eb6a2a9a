package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/database"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
)

// BindingRepository persists per-template binding sets.
// The table's primary key (template_id, placeholder_key) guarantees one binding per key.
type BindingRepository interface {
	// Get returns the template's bindings in placeholder order; an empty set when none exist.
	Get(ctx context.Context, templateID uuid.UUID) (*models.BindingSet, error)
	// Replace swaps the template's whole binding set in one transaction.
	Replace(ctx context.Context, set *models.BindingSet) error
	// Upsert writes a single binding, keeping the key's position when it already exists.
	Upsert(ctx context.Context, templateID uuid.UUID, entry models.BindingEntry) error
}

type bindingRepository struct {
	db *database.DB
}

// NewBindingRepository creates a new BindingRepository.
func NewBindingRepository(db *database.DB) BindingRepository {
	return &bindingRepository{db: db}
}

var _ BindingRepository = (*bindingRepository)(nil)

const bindingColumns = `placeholder_key, kind, entity_type, field_name, dataset_id,
	column_name, literal_value, hint_category, source, updated_at`

func (r *bindingRepository) Get(ctx context.Context, templateID uuid.UUID) (*models.BindingSet, error) {
	q := database.QuerierFrom(ctx, r.db)
	rows, err := q.Query(ctx, `
		SELECT `+bindingColumns+`
		FROM engine_template_bindings
		WHERE template_id = $1
		ORDER BY position, placeholder_key`, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bindings: %w", err)
	}
	defer rows.Close()

	set := &models.BindingSet{TemplateID: templateID}
	for rows.Next() {
		entry, err := scanBinding(rows)
		if err != nil {
			return nil, err
		}
		set.Put(entry.Key, entry.Descriptor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bindings: %w", err)
	}
	return set, nil
}

func (r *bindingRepository) Replace(ctx context.Context, set *models.BindingSet) error {
	return r.db.InTx(ctx, func(ctx context.Context) error {
		q := database.QuerierFrom(ctx, r.db)
		if _, err := q.Exec(ctx, `DELETE FROM engine_template_bindings WHERE template_id = $1`, set.TemplateID); err != nil {
			return fmt.Errorf("failed to clear bindings: %w", err)
		}
		if set.Len() == 0 {
			return nil
		}

		now := time.Now()
		batch := &pgx.Batch{}
		for i, e := range set.Entries() {
			queueBindingUpsert(batch, set.TemplateID, i, e, now)
		}
		if err := q.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert bindings: %w", err)
		}
		return nil
	})
}

func (r *bindingRepository) Upsert(ctx context.Context, templateID uuid.UUID, entry models.BindingEntry) error {
	q := database.QuerierFrom(ctx, r.db)

	var position int
	err := q.QueryRow(ctx, `
		SELECT COALESCE(MAX(position) + 1, 0) FROM engine_template_bindings WHERE template_id = $1`,
		templateID).Scan(&position)
	if err != nil {
		return fmt.Errorf("failed to compute binding position: %w", err)
	}

	batch := &pgx.Batch{}
	queueBindingUpsert(batch, templateID, position, entry, time.Now())
	if err := q.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert binding: %w", err)
	}
	return nil
}

func queueBindingUpsert(batch *pgx.Batch, templateID uuid.UUID, position int, e models.BindingEntry, now time.Time) {
	d := e.Descriptor
	batch.Queue(`
		INSERT INTO engine_template_bindings (
			template_id, placeholder_key, position, kind, entity_type, field_name,
			dataset_id, column_name, literal_value, hint_category, source, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (template_id, placeholder_key) DO UPDATE SET
			kind = EXCLUDED.kind,
			entity_type = EXCLUDED.entity_type,
			field_name = EXCLUDED.field_name,
			dataset_id = EXCLUDED.dataset_id,
			column_name = EXCLUDED.column_name,
			literal_value = EXCLUDED.literal_value,
			hint_category = EXCLUDED.hint_category,
			source = EXCLUDED.source,
			updated_at = EXCLUDED.updated_at`,
		templateID, e.Key, position, string(d.Kind),
		nullString(d.EntityType), nullString(d.Field),
		nullUUID(d.DatasetID), nullString(d.Column),
		literalValue(d), nullString(string(d.Hint)),
		string(d.Source), bindingTimestamp(d, now),
	)
}

// bindingTimestamp keeps the stored time of a binding carried over unchanged,
// such as an operator override kept across a re-scan.
func bindingTimestamp(d models.BindingDescriptor, now time.Time) time.Time {
	if d.UpdatedAt.IsZero() {
		return now
	}
	return d.UpdatedAt
}

// literalValue keeps empty literals distinct from "no literal".
func literalValue(d models.BindingDescriptor) *string {
	if d.Kind != models.BindingLiteral {
		return nil
	}
	v := d.Literal
	return &v
}

func scanBinding(row pgx.Row) (models.BindingEntry, error) {
	var (
		e                                        models.BindingEntry
		kind, source                             string
		entityType, field, column, literal, hint *string
		datasetID                                *uuid.UUID
	)
	err := row.Scan(&e.Key, &kind, &entityType, &field, &datasetID,
		&column, &literal, &hint, &source, &e.Descriptor.UpdatedAt)
	if err != nil {
		return e, fmt.Errorf("failed to scan binding: %w", err)
	}

	e.Descriptor.Kind = models.BindingKind(kind)
	e.Descriptor.Source = models.BindingSource(source)
	e.Descriptor.EntityType = derefString(entityType)
	e.Descriptor.Field = derefString(field)
	e.Descriptor.Column = derefString(column)
	e.Descriptor.Literal = derefString(literal)
	e.Descriptor.Hint = models.SemanticCategory(derefString(hint))
	if datasetID != nil {
		e.Descriptor.DatasetID = *datasetID
	}
	return e, nil
}
