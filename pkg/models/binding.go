package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BindingKind tags the variant held by a BindingDescriptor.
type BindingKind string

const (
	BindingDatabaseField BindingKind = "database_field"
	BindingDatasetField  BindingKind = "dataset_field"
	BindingLiteral       BindingKind = "literal"
	BindingSynthetic     BindingKind = "synthetic"
)

// BindingSource records which step of the suggestion pass produced a binding.
type BindingSource string

const (
	BindingSourcePrefix    BindingSource = "prefix"
	BindingSourceModel     BindingSource = "model"
	BindingSourceHeuristic BindingSource = "heuristic"
	BindingSourceRescue    BindingSource = "rescue"
	BindingSourceOperator  BindingSource = "operator"
)

// SemanticCategory is the coarse meaning of a placeholder used for synthetic values.
type SemanticCategory string

const (
	CategoryCompanyName SemanticCategory = "company_name"
	CategoryBanking     SemanticCategory = "banking_identifier"
	CategoryAddress     SemanticCategory = "address"
	CategoryDate        SemanticCategory = "date"
	CategoryPerson      SemanticCategory = "person"
	CategoryGeneric     SemanticCategory = "generic"
)

// BindingDescriptor says which data source answers one placeholder of a template.
// Only the fields of the variant named by Kind are meaningful.
type BindingDescriptor struct {
	Kind BindingKind `json:"kind"`

	// BindingDatabaseField
	EntityType string `json:"entity_type,omitempty"`
	Field      string `json:"field,omitempty"`

	// BindingDatasetField
	DatasetID uuid.UUID `json:"dataset_id,omitempty"`
	Column    string    `json:"column,omitempty"`

	// BindingLiteral
	Literal string `json:"literal,omitempty"`

	// BindingSynthetic
	Hint SemanticCategory `json:"hint,omitempty"`

	Source    BindingSource `json:"source"`
	UpdatedAt time.Time     `json:"updated_at,omitempty"`
}

// DatabaseField binds a placeholder to a column of an entity type.
func DatabaseField(entityType, field string, source BindingSource) BindingDescriptor {
	return BindingDescriptor{Kind: BindingDatabaseField, EntityType: entityType, Field: field, Source: source}
}

// DatasetField binds a placeholder to a column of a registered dataset.
func DatasetField(datasetID uuid.UUID, column string, source BindingSource) BindingDescriptor {
	return BindingDescriptor{Kind: BindingDatasetField, DatasetID: datasetID, Column: column, Source: source}
}

// Literal binds a placeholder to a fixed operator-supplied string.
func Literal(value string) BindingDescriptor {
	return BindingDescriptor{Kind: BindingLiteral, Literal: value, Source: BindingSourceOperator}
}

// Synthetic binds a placeholder to generated filler of the given category.
func Synthetic(hint SemanticCategory, source BindingSource) BindingDescriptor {
	return BindingDescriptor{Kind: BindingSynthetic, Hint: hint, Source: source}
}

// Validate checks that the variant fields required by Kind are present.
func (d BindingDescriptor) Validate() error {
	switch d.Kind {
	case BindingDatabaseField:
		if d.EntityType == "" || d.Field == "" {
			return fmt.Errorf("database_field binding requires entity_type and field")
		}
	case BindingDatasetField:
		if d.DatasetID == uuid.Nil || d.Column == "" {
			return fmt.Errorf("dataset_field binding requires dataset_id and column")
		}
	case BindingLiteral:
	case BindingSynthetic:
		if d.Hint == "" {
			return fmt.Errorf("synthetic binding requires a hint")
		}
	default:
		return fmt.Errorf("unknown binding kind %q", d.Kind)
	}
	return nil
}

func (d BindingDescriptor) String() string {
	switch d.Kind {
	case BindingDatabaseField:
		return fmt.Sprintf("db:%s.%s", d.EntityType, d.Field)
	case BindingDatasetField:
		return fmt.Sprintf("dataset:%s.%s", d.DatasetID, d.Column)
	case BindingLiteral:
		return fmt.Sprintf("literal:%q", d.Literal)
	case BindingSynthetic:
		return fmt.Sprintf("synthetic:%s", d.Hint)
	}
	return string(d.Kind)
}

// BindingEntry pairs a placeholder key with its descriptor.
type BindingEntry struct {
	Key        string            `json:"key"`
	Descriptor BindingDescriptor `json:"binding"`
}

// BindingSet is the ordered, per-template map from placeholder key to binding.
// It holds at most one descriptor per key; Put replaces rather than appends.
// The zero value is ready to use.
type BindingSet struct {
	TemplateID uuid.UUID
	keys       []string
	byKey      map[string]BindingDescriptor
}

// NewBindingSet builds a set from entries. Later entries for a key replace earlier ones
// while keeping the key's first position.
func NewBindingSet(templateID uuid.UUID, entries []BindingEntry) *BindingSet {
	s := &BindingSet{TemplateID: templateID}
	for _, e := range entries {
		s.Put(e.Key, e.Descriptor)
	}
	return s
}

// Put sets the binding for key.
func (s *BindingSet) Put(key string, d BindingDescriptor) {
	if s.byKey == nil {
		s.byKey = make(map[string]BindingDescriptor)
	}
	if _, ok := s.byKey[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.byKey[key] = d
}

// Get returns the binding for key.
func (s *BindingSet) Get(key string) (BindingDescriptor, bool) {
	if s == nil {
		return BindingDescriptor{}, false
	}
	d, ok := s.byKey[key]
	return d, ok
}

// Keys returns placeholder keys in insertion order.
func (s *BindingSet) Keys() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Entries returns the bindings in insertion order.
func (s *BindingSet) Entries() []BindingEntry {
	if s == nil {
		return nil
	}
	out := make([]BindingEntry, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, BindingEntry{Key: k, Descriptor: s.byKey[k]})
	}
	return out
}

// Len returns the number of bound placeholders.
func (s *BindingSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Clone returns an independent copy.
func (s *BindingSet) Clone() *BindingSet {
	if s == nil {
		return &BindingSet{}
	}
	return NewBindingSet(s.TemplateID, s.Entries())
}

// CountByKind tallies bindings per kind.
func (s *BindingSet) CountByKind() map[BindingKind]int {
	counts := make(map[BindingKind]int)
	if s == nil {
		return counts
	}
	for _, d := range s.byKey {
		counts[d.Kind]++
	}
	return counts
}
