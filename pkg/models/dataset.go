package models

import (
	"time"

	"github.com/google/uuid"
)

// Dataset is a registered flat table (uploaded CSV or spreadsheet) keyed by one column.
// KeyEntity/KeyField name the entity field whose value joins into KeyColumn
// (e.g. vessels.imo_number -> imo); both are optional.
type Dataset struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	KeyColumn string    `json:"key_column"`
	KeyEntity string    `json:"key_entity,omitempty"`
	KeyField  string    `json:"key_field,omitempty"`
	Columns   []string  `json:"columns"`
	CreatedAt time.Time `json:"created_at"`
}

// HasColumn reports whether the dataset declares column.
func (d *Dataset) HasColumn(column string) bool {
	for _, c := range d.Columns {
		if c == column {
			return true
		}
	}
	return false
}
