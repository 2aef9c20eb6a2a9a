// Package tools provides the MCP tools of the binding engine.
package tools

import (
	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/services"
)

// BindingToolDeps contains dependencies for the binding and resolution tools.
type BindingToolDeps struct {
	Suggestion services.BindingSuggestionService
	Store      services.BindingStore
	Resolution services.ResolutionService
	Logger     *zap.Logger
}
