//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/apperrors"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/testhelpers"
)

func TestDatasetRepository_CreateListLookup(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	repo := NewDatasetRepository(engineDB.DB)
	ctx := context.Background()

	ds := &models.Dataset{
		Name:      "charter parties",
		KeyColumn: "imo",
		KeyEntity: "vessel",
		KeyField:  "imo_number",
		Columns:   []string{"imo", "charterer", "laycan_start"},
	}
	require.NoError(t, repo.Create(ctx, ds))
	t.Cleanup(func() {
		_, _ = engineDB.DB.Pool.Exec(ctx, `DELETE FROM engine_datasets WHERE id = $1`, ds.ID)
	})

	require.NoError(t, repo.PutRows(ctx, ds.ID, map[string]map[string]any{
		"9321483": {"imo": "9321483", "charterer": "Blue Ocean Chartering", "laycan_start": "2026-03-01"},
	}))

	got, err := repo.Get(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, ds.Columns, got.Columns)
	assert.Equal(t, "vessel", got.KeyEntity)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	var found bool
	for _, d := range all {
		if d.ID == ds.ID {
			found = true
		}
	}
	assert.True(t, found)

	rec, err := repo.Lookup(ctx, ds.ID, "9321483")
	require.NoError(t, err)
	assert.Equal(t, "Blue Ocean Chartering", rec["charterer"])

	_, err = repo.Lookup(ctx, ds.ID, "0000000")
	assert.ErrorIs(t, err, apperrors.ErrDatasetMiss)

	_, err = repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
