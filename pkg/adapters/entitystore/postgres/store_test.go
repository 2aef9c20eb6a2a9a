package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/adapters/entitystore"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/classifier"
)

func TestDialect_QueriesAreQuoted(t *testing.T) {
	reg, err := classifier.NewRegistry(classifier.DefaultEntityTypes())
	require.NoError(t, err)

	vessel, ok := reg.Get("vessel")
	require.True(t, ok)
	q := entitystore.ByKeyQuery(Dialect{}, vessel)
	assert.Contains(t, q, `FROM "vessels" WHERE "id" = $1 LIMIT 1`)

	bank, ok := reg.Get("buyer_bank")
	require.True(t, ok)
	q, err = entitystore.PrimaryOwnedQuery(Dialect{}, bank)
	require.NoError(t, err)
	assert.Contains(t, q, `WHERE "buyer_id" = $1 AND "is_primary" = TRUE`)
	assert.Contains(t, q, "LIMIT 2")
}

func TestNormalizeValue(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, id.String(), normalizeValue([16]byte(id)))

	var n pgtype.Numeric
	require.NoError(t, n.Scan("12.5"))
	assert.Equal(t, 12.5, normalizeValue(n))
	assert.Nil(t, normalizeValue(pgtype.Numeric{}))

	assert.Equal(t, []any{"a", id.String()}, normalizeValue([]any{"a", [16]byte(id)}))
	assert.Equal(t, "plain", normalizeValue("plain"))
}

func TestResolveDSNHost_LeavesKeywordDSN(t *testing.T) {
	dsn := "host=localhost user=x dbname=y"
	assert.Equal(t, dsn, resolveDSNHost(dsn))
}
