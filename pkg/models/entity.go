package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// KeyKind is the primary-key convention of an entity type.
type KeyKind string

const (
	KeyKindInt    KeyKind = "int"    // small integer serial keys
	KeyKindOpaque KeyKind = "opaque" // UUIDs or other opaque tokens
)

// FieldType describes how a column value should be rendered as text.
type FieldType string

const (
	FieldTypeText    FieldType = "text"
	FieldTypeInt     FieldType = "int"
	FieldTypeDecimal FieldType = "decimal"
	FieldTypeDate    FieldType = "date"
	FieldTypeBool    FieldType = "bool"
	FieldTypeList    FieldType = "list"
)

// EntityField is one named, typed column of an entity type.
type EntityField struct {
	Name        string    `json:"name" yaml:"name"`
	Type        FieldType `json:"type" yaml:"type"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
}

// OwnerRelation links a sub-entity (e.g. a bank account) to the entity that owns it.
type OwnerRelation struct {
	EntityType    string `json:"entity_type" yaml:"entity_type"`
	OwnerColumn   string `json:"owner_column" yaml:"owner_column"`
	PrimaryColumn string `json:"primary_column" yaml:"primary_column"`
}

// EntityType is one business record kind known to the binding engine.
// The set is fixed at startup; see classifier.Registry.
type EntityType struct {
	Name         string            `json:"name" yaml:"name"`
	KeyKind      KeyKind           `json:"key_kind" yaml:"key_kind"`
	Table        string            `json:"table" yaml:"table"`
	KeyColumn    string            `json:"key_column" yaml:"key_column"`
	Fields       []EntityField     `json:"fields" yaml:"fields"`
	DefaultField string            `json:"default_field,omitempty" yaml:"default_field,omitempty"`
	Aliases      map[string]string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Owner        *OwnerRelation    `json:"owner,omitempty" yaml:"owner,omitempty"`
}

// HasField reports whether name is a declared field of the entity type.
func (e *EntityType) HasField(name string) bool {
	_, ok := e.Field(name)
	return ok
}

// Field returns the declared field with the given name.
func (e *EntityType) Field(name string) (EntityField, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return EntityField{}, false
}

// FieldNames returns the declared field names in declaration order.
func (e *EntityType) FieldNames() []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Name
	}
	return names
}

// IsOwned reports whether the entity type is a sub-entity of another type.
func (e *EntityType) IsOwned() bool {
	return e.Owner != nil
}

// Identifier is a parsed primary key value for one entity type.
type Identifier struct {
	Kind   KeyKind
	Int    int64
	Opaque string
}

// ParseIdentifier validates raw against the key convention of kind.
// Opaque identifiers that look like UUIDs are canonicalized.
func ParseIdentifier(kind KeyKind, raw string) (Identifier, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identifier{}, fmt.Errorf("empty identifier")
	}
	switch kind {
	case KeyKindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Identifier{}, fmt.Errorf("identifier %q is not an integer: %w", raw, err)
		}
		if n <= 0 {
			return Identifier{}, fmt.Errorf("identifier %d must be positive", n)
		}
		return Identifier{Kind: KeyKindInt, Int: n}, nil
	case KeyKindOpaque:
		if id, err := uuid.Parse(raw); err == nil {
			return Identifier{Kind: KeyKindOpaque, Opaque: id.String()}, nil
		}
		if len(raw) > 128 {
			return Identifier{}, fmt.Errorf("identifier is too long (%d characters)", len(raw))
		}
		return Identifier{Kind: KeyKindOpaque, Opaque: raw}, nil
	default:
		return Identifier{}, fmt.Errorf("unknown key kind %q", kind)
	}
}

// Value returns the identifier as a query argument.
func (id Identifier) Value() any {
	if id.Kind == KeyKindInt {
		return id.Int
	}
	return id.Opaque
}

func (id Identifier) String() string {
	if id.Kind == KeyKindInt {
		return strconv.FormatInt(id.Int, 10)
	}
	return id.Opaque
}

// IsZero reports whether the identifier was never set.
func (id Identifier) IsZero() bool {
	return id.Kind == "" && id.Int == 0 && id.Opaque == ""
}

// Record is one fetched row keyed by column name.
type Record map[string]any

// Lookup returns the value of column and whether the column is present.
func (r Record) Lookup(column string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r[column]
	return v, ok
}
