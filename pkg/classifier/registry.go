// Package classifier maps normalized placeholder keys onto entity fields using
// a validated, longest-prefix-first rule table.
package classifier

import (
	"fmt"
	"regexp"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/apperrors"
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
)

// sqlIdentifier limits table and column names to what entity stores may
// interpolate into queries.
var sqlIdentifier = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Registry is the fixed set of entity types known to the engine.
// It is read-only after construction and safe for concurrent use.
type Registry struct {
	types map[string]*models.EntityType
	order []string
}

// NewRegistry validates types and builds a registry. Any problem is reported
// as a *apperrors.ConfigurationError listing every violation found.
func NewRegistry(types []models.EntityType) (*Registry, error) {
	r := &Registry{types: make(map[string]*models.EntityType, len(types))}
	var problems []string

	for i := range types {
		et := types[i]
		if et.Name == "" {
			problems = append(problems, fmt.Sprintf("entity type #%d has no name", i))
			continue
		}
		if _, dup := r.types[et.Name]; dup {
			problems = append(problems, fmt.Sprintf("entity type %q declared twice", et.Name))
			continue
		}
		problems = append(problems, validateEntityType(&et)...)
		r.types[et.Name] = &et
		r.order = append(r.order, et.Name)
	}

	for _, name := range r.order {
		et := r.types[name]
		if et.Owner == nil {
			continue
		}
		owner, ok := r.types[et.Owner.EntityType]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("%s: owner %q is not a registered entity type", name, et.Owner.EntityType))
		case owner.Name == name:
			problems = append(problems, fmt.Sprintf("%s: entity type cannot own itself", name))
		case owner.Owner != nil:
			problems = append(problems, fmt.Sprintf("%s: owner %q is itself owned", name, owner.Name))
		}
	}

	if err := apperrors.NewConfigurationError(problems); err != nil {
		return nil, err
	}
	return r, nil
}

func validateEntityType(et *models.EntityType) []string {
	var problems []string
	fail := func(format string, args ...any) {
		problems = append(problems, et.Name+": "+fmt.Sprintf(format, args...))
	}

	if et.KeyKind != models.KeyKindInt && et.KeyKind != models.KeyKindOpaque {
		fail("unknown key kind %q", et.KeyKind)
	}
	if !sqlIdentifier.MatchString(et.Table) {
		fail("invalid table name %q", et.Table)
	}
	if !sqlIdentifier.MatchString(et.KeyColumn) {
		fail("invalid key column %q", et.KeyColumn)
	}
	if len(et.Fields) == 0 {
		fail("no fields declared")
	}

	seen := make(map[string]bool, len(et.Fields))
	for _, f := range et.Fields {
		if !sqlIdentifier.MatchString(f.Name) {
			fail("invalid field name %q", f.Name)
		}
		if seen[f.Name] {
			fail("field %q declared twice", f.Name)
		}
		seen[f.Name] = true
	}

	if et.DefaultField != "" && !seen[et.DefaultField] {
		fail("default field %q is not declared", et.DefaultField)
	}
	for alias, target := range et.Aliases {
		if !seen[target] {
			fail("alias %q points at undeclared field %q", alias, target)
		}
	}
	if et.Owner != nil {
		if !sqlIdentifier.MatchString(et.Owner.OwnerColumn) {
			fail("invalid owner column %q", et.Owner.OwnerColumn)
		}
		if !sqlIdentifier.MatchString(et.Owner.PrimaryColumn) {
			fail("invalid primary column %q", et.Owner.PrimaryColumn)
		}
	}
	return problems
}

// Get returns the entity type with the given name.
func (r *Registry) Get(name string) (*models.EntityType, bool) {
	et, ok := r.types[name]
	return et, ok
}

// Types returns every entity type in declaration order.
func (r *Registry) Types() []*models.EntityType {
	out := make([]*models.EntityType, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.types[name])
	}
	return out
}

// Owned returns the entity types owned by owner.
func (r *Registry) Owned(owner string) []*models.EntityType {
	var out []*models.EntityType
	for _, name := range r.order {
		et := r.types[name]
		if et.Owner != nil && et.Owner.EntityType == owner {
			out = append(out, et)
		}
	}
	return out
}

// HasField reports whether entityType declares field.
func (r *Registry) HasField(entityType, field string) bool {
	et, ok := r.types[entityType]
	return ok && et.HasField(field)
}
