package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/apperrors"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/database"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
)

// TemplateRepository stores templates and the raw placeholder tokens found in them.
// Parsing documents happens elsewhere; this only records its output.
type TemplateRepository interface {
	Create(ctx context.Context, template *models.Template, rawTokens []string) error
	Get(ctx context.Context, id uuid.UUID) (*models.Template, error)
	ListPlaceholders(ctx context.Context, templateID uuid.UUID) ([]models.Placeholder, error)
	ReplacePlaceholders(ctx context.Context, templateID uuid.UUID, rawTokens []string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type templateRepository struct {
	db *database.DB
}

// NewTemplateRepository creates a new TemplateRepository.
func NewTemplateRepository(db *database.DB) TemplateRepository {
	return &templateRepository{db: db}
}

var _ TemplateRepository = (*templateRepository)(nil)

func (r *templateRepository) Create(ctx context.Context, template *models.Template, rawTokens []string) error {
	if template.ID == uuid.Nil {
		template.ID = uuid.New()
	}
	if template.CreatedAt.IsZero() {
		template.CreatedAt = time.Now()
	}

	return r.db.InTx(ctx, func(ctx context.Context) error {
		q := database.QuerierFrom(ctx, r.db)
		_, err := q.Exec(ctx,
			`INSERT INTO engine_templates (id, name, created_at) VALUES ($1, $2, $3)`,
			template.ID, template.Name, template.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create template: %w", err)
		}
		return r.insertPlaceholders(ctx, q, template.ID, rawTokens)
	})
}

func (r *templateRepository) Get(ctx context.Context, id uuid.UUID) (*models.Template, error) {
	q := database.QuerierFrom(ctx, r.db)

	var t models.Template
	err := q.QueryRow(ctx,
		`SELECT id, name, created_at FROM engine_templates WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &t, nil
}

// ListPlaceholders returns the template's tokens in document order.
// Returns apperrors.ErrNotFound when the template does not exist.
func (r *templateRepository) ListPlaceholders(ctx context.Context, templateID uuid.UUID) ([]models.Placeholder, error) {
	if _, err := r.Get(ctx, templateID); err != nil {
		return nil, err
	}

	q := database.QuerierFrom(ctx, r.db)
	rows, err := q.Query(ctx, `
		SELECT position, raw_token
		FROM engine_template_placeholders
		WHERE template_id = $1
		ORDER BY position`, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to query placeholders: %w", err)
	}
	defer rows.Close()

	var out []models.Placeholder
	for rows.Next() {
		var p models.Placeholder
		if err := rows.Scan(&p.Position, &p.Raw); err != nil {
			return nil, fmt.Errorf("failed to scan placeholder: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating placeholders: %w", err)
	}
	return out, nil
}

func (r *templateRepository) ReplacePlaceholders(ctx context.Context, templateID uuid.UUID, rawTokens []string) error {
	return r.db.InTx(ctx, func(ctx context.Context) error {
		q := database.QuerierFrom(ctx, r.db)
		if _, err := q.Exec(ctx, `DELETE FROM engine_template_placeholders WHERE template_id = $1`, templateID); err != nil {
			return fmt.Errorf("failed to clear placeholders: %w", err)
		}
		return r.insertPlaceholders(ctx, q, templateID, rawTokens)
	})
}

func (r *templateRepository) insertPlaceholders(ctx context.Context, q database.Querier, templateID uuid.UUID, rawTokens []string) error {
	if len(rawTokens) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, raw := range rawTokens {
		batch.Queue(`INSERT INTO engine_template_placeholders (template_id, position, raw_token) VALUES ($1, $2, $3)`,
			templateID, i, raw)
	}
	if err := q.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert placeholders: %w", err)
	}
	return nil
}

func (r *templateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q := database.QuerierFrom(ctx, r.db)
	result, err := q.Exec(ctx, `DELETE FROM engine_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
