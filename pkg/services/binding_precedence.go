package services

import (
	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
)

// BindingPrecedence decides whether a newly proposed binding may replace a stored one.
// Precedence hierarchy: Operator (2) > suggestion sources (1).
type BindingPrecedence interface {
	// CanReplace reports whether a binding from incoming may overwrite one from existing.
	CanReplace(existing, incoming models.BindingSource) bool

	// Level returns the numeric precedence level for a source.
	Level(source models.BindingSource) int
}

type bindingPrecedence struct{}

// NewBindingPrecedence creates a new BindingPrecedence.
func NewBindingPrecedence() BindingPrecedence {
	return &bindingPrecedence{}
}

func (p *bindingPrecedence) CanReplace(existing, incoming models.BindingSource) bool {
	return p.Level(incoming) >= p.Level(existing)
}

// Level returns Operator: 2, Prefix/Model/Heuristic/Rescue: 1, Unknown: 0.
func (p *bindingPrecedence) Level(source models.BindingSource) int {
	switch source {
	case models.BindingSourceOperator:
		return 2
	case models.BindingSourcePrefix, models.BindingSourceModel,
		models.BindingSourceHeuristic, models.BindingSourceRescue:
		return 1
	default:
		return 0
	}
}
