package entitystore

import (
	"fmt"
	"strings"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
)

// Dialect captures the SQL differences between backends.
type Dialect interface {
	QuoteIdent(name string) string
	Placeholder(n int) string
	TrueLiteral() string
	// Bound wraps the select list and remainder of a query so that at most n rows return.
	Bound(selectList, rest string, n int) string
}

// SelectColumns lists the columns read for et: its key, every declared field,
// and the owner column for owned types.
func SelectColumns(et *models.EntityType) []string {
	cols := make([]string, 0, len(et.Fields)+2)
	seen := make(map[string]bool, len(et.Fields)+2)
	add := func(c string) {
		if !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}
	add(et.KeyColumn)
	for _, f := range et.Fields {
		add(f.Name)
	}
	if et.Owner != nil {
		add(et.Owner.OwnerColumn)
	}
	return cols
}

func selectList(d Dialect, et *models.EntityType) string {
	cols := SelectColumns(et)
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

// ByKeyQuery selects the record of et with the given key.
func ByKeyQuery(d Dialect, et *models.EntityType) string {
	rest := fmt.Sprintf("FROM %s WHERE %s = %s",
		d.QuoteIdent(et.Table), d.QuoteIdent(et.KeyColumn), d.Placeholder(1))
	return d.Bound(selectList(d, et), rest, 1)
}

// PrimaryOwnedQuery selects up to two primary-flagged records of the owned
// type et for one owner. Two rows back means the flag is ambiguous.
func PrimaryOwnedQuery(d Dialect, et *models.EntityType) (string, error) {
	if et.Owner == nil {
		return "", fmt.Errorf("entity type %s has no owner", et.Name)
	}
	rest := fmt.Sprintf("FROM %s WHERE %s = %s AND %s = %s ORDER BY %s",
		d.QuoteIdent(et.Table),
		d.QuoteIdent(et.Owner.OwnerColumn), d.Placeholder(1),
		d.QuoteIdent(et.Owner.PrimaryColumn), d.TrueLiteral(),
		d.QuoteIdent(et.KeyColumn))
	return d.Bound(selectList(d, et), rest, 2), nil
}
