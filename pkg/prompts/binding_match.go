// Package prompts builds the prompts sent to the assisting model.
package prompts

import (
	"fmt"
	"strings"
)

// EntityContext describes one entity type offered to the model.
type EntityContext struct {
	Name   string
	Fields []FieldContext
}

// FieldContext is one field of an entity type.
type FieldContext struct {
	Name        string
	Type        string
	Description string
}

// DatasetContext describes one registered dataset offered to the model.
type DatasetContext struct {
	ID      string
	Name    string
	Columns []string
}

// Binding kinds the model may answer with.
const (
	MatchKindDatabaseField = "database_field"
	MatchKindDatasetField  = "dataset_field"
	MatchKindSynthetic     = "synthetic"
)

// BindingMatch is one element of the model's answer.
type BindingMatch struct {
	Placeholder string `json:"placeholder"`
	Kind        string `json:"kind"`
	EntityType  string `json:"entity_type,omitempty"`
	Field       string `json:"field,omitempty"`
	DatasetID   string `json:"dataset_id,omitempty"`
	Column      string `json:"column,omitempty"`
}

// BuildBindingMatchPrompt asks the model to map placeholders onto the given
// entity fields and dataset columns.
func BuildBindingMatchPrompt(placeholders []string, entities []EntityContext, datasets []DatasetContext) string {
	var prompt strings.Builder

	prompt.WriteString("# Placeholder Binding\n\n")
	prompt.WriteString("A document template contains the placeholders listed below. ")
	prompt.WriteString("Choose the data source that should fill each one.\n\n")

	prompt.WriteString("## Entity Fields\n\n")
	for _, e := range entities {
		prompt.WriteString(fmt.Sprintf("### %s\n", e.Name))
		for _, f := range e.Fields {
			if f.Description != "" {
				prompt.WriteString(fmt.Sprintf("- %s (%s): %s\n", f.Name, f.Type, f.Description))
			} else {
				prompt.WriteString(fmt.Sprintf("- %s (%s)\n", f.Name, f.Type))
			}
		}
		prompt.WriteString("\n")
	}

	if len(datasets) > 0 {
		prompt.WriteString("## Datasets\n\n")
		for _, d := range datasets {
			prompt.WriteString(fmt.Sprintf("### %s (id: %s)\n", d.Name, d.ID))
			prompt.WriteString(fmt.Sprintf("Columns: %s\n\n", strings.Join(d.Columns, ", ")))
		}
	}

	prompt.WriteString("## Placeholders\n\n")
	for _, p := range placeholders {
		prompt.WriteString(fmt.Sprintf("- %s\n", p))
	}
	prompt.WriteString("\n")

	prompt.WriteString("## Rules\n\n")
	prompt.WriteString("- Prefer `database_field` over `dataset_field`, and `dataset_field` over `synthetic`.\n")
	prompt.WriteString("- Use `synthetic` only when no entity field or dataset column is plausibly related.\n")
	prompt.WriteString("- Use only entity types, fields, dataset ids and columns listed above. Never invent names.\n")
	prompt.WriteString("- A placeholder naming one party (buyer, seller, a port) must not be mapped to a different party.\n\n")

	prompt.WriteString("## Output Format\n\n")
	prompt.WriteString("Respond with a JSON array containing one object per placeholder:\n")
	prompt.WriteString("```json\n")
	prompt.WriteString(`[
  {"placeholder": "ship_deadweight", "kind": "database_field", "entity_type": "vessel", "field": "deadweight"},
  {"placeholder": "cargo_assay", "kind": "dataset_field", "dataset_id": "3f0c...", "column": "assay"},
  {"placeholder": "special_clause", "kind": "synthetic"}
]
`)
	prompt.WriteString("```\n\n")
	prompt.WriteString("Return ONLY the JSON, no additional text.\n")

	return prompt.String()
}

// BuildBindingMatchSystemMessage returns the system message for binding matching.
func BuildBindingMatchSystemMessage() string {
	return `You map placeholders in commercial and maritime document templates to database fields. You answer only with JSON and only with names you were given.`
}
