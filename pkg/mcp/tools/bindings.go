package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/models"
)

type bindingsResult struct {
	TemplateID uuid.UUID                  `json:"template_id"`
	Bindings   []bindingView              `json:"bindings"`
	Counts     map[models.BindingKind]int `json:"counts"`
}

// bindingView flattens a binding for agents: the descriptor string is easier
// to read than the tagged union.
type bindingView struct {
	Key     string                   `json:"key"`
	Binding string                   `json:"binding"`
	Source  models.BindingSource     `json:"source,omitempty"`
	Detail  models.BindingDescriptor `json:"detail"`
}

func viewOf(entries []models.BindingEntry) []bindingView {
	out := make([]bindingView, 0, len(entries))
	for _, e := range entries {
		out = append(out, bindingView{
			Key:     e.Key,
			Binding: e.Descriptor.String(),
			Source:  e.Descriptor.Source,
			Detail:  e.Descriptor,
		})
	}
	return out
}

// RegisterBindingTools adds suggest_bindings, get_bindings and override_binding.
func RegisterBindingTools(s *server.MCPServer, deps *BindingToolDeps) {
	registerSuggestBindingsTool(s, deps)
	registerGetBindingsTool(s, deps)
	registerOverrideBindingTool(s, deps)
}

func registerSuggestBindingsTool(s *server.MCPServer, deps *BindingToolDeps) {
	tool := mcp.NewTool(
		"suggest_bindings",
		mcp.WithDescription(`Run the binding suggestion pass for a template.
Every placeholder gets a binding to an entity field, a reference dataset column, or a synthetic generator.
Operator bindings are kept. Returns counts per binding kind and the fraction bound to entity fields.`),
		mcp.WithString(
			"template_id",
			mcp.Required(),
			mcp.Description("UUID of the registered template"),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		templateID, bad, err := templateIDArg(req)
		if err != nil || bad != nil {
			return bad, err
		}

		report, err := deps.Suggestion.SuggestBindings(ctx, templateID)
		if err != nil {
			if result := actionableError(err); result != nil {
				return result, nil
			}
			deps.Logger.Error("suggest_bindings failed", zap.String("template_id", templateID.String()), zap.Error(err))
			return nil, fmt.Errorf("suggest bindings: %w", err)
		}

		jsonResult, err := json.Marshal(report)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal suggestion report: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

func registerGetBindingsTool(s *server.MCPServer, deps *BindingToolDeps) {
	tool := mcp.NewTool(
		"get_bindings",
		mcp.WithDescription("List the stored bindings of a template, one per placeholder key."),
		mcp.WithString(
			"template_id",
			mcp.Required(),
			mcp.Description("UUID of the registered template"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		templateID, bad, err := templateIDArg(req)
		if err != nil || bad != nil {
			return bad, err
		}

		set, err := deps.Store.Get(ctx, templateID)
		if err != nil {
			return nil, fmt.Errorf("get bindings: %w", err)
		}

		jsonResult, err := json.Marshal(bindingsResult{
			TemplateID: templateID,
			Bindings:   viewOf(set.Entries()),
			Counts:     set.CountByKind(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal bindings: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

func registerOverrideBindingTool(s *server.MCPServer, deps *BindingToolDeps) {
	tool := mcp.NewTool(
		"override_binding",
		mcp.WithDescription(`Set the binding of one placeholder as an operator.
Operator bindings survive later suggestion passes. Pass the fields of the chosen kind:
database_field needs entity_type and field, dataset_field needs dataset_id and column,
literal needs literal, synthetic needs hint.`),
		mcp.WithString("template_id", mcp.Required(), mcp.Description("UUID of the registered template")),
		mcp.WithString("key", mcp.Required(), mcp.Description("Placeholder key or raw token, e.g. buyer_bank_swift or {{BuyerBankSWIFT}}")),
		mcp.WithString("kind", mcp.Required(), mcp.Description("database_field, dataset_field, literal or synthetic")),
		mcp.WithString("entity_type", mcp.Description("Entity type for database_field, e.g. seller_bank")),
		mcp.WithString("field", mcp.Description("Entity field for database_field, e.g. swift_code")),
		mcp.WithString("dataset_id", mcp.Description("Dataset UUID for dataset_field")),
		mcp.WithString("column", mcp.Description("Dataset column for dataset_field")),
		mcp.WithString("literal", mcp.Description("Fixed text for literal")),
		mcp.WithString("hint", mcp.Description("Semantic category for synthetic: company_name, banking_identifier, address, date, person or generic")),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		templateID, bad, err := templateIDArg(req)
		if err != nil || bad != nil {
			return bad, err
		}
		key, err := req.RequireString("key")
		if err != nil {
			return nil, err
		}
		kind, err := req.RequireString("kind")
		if err != nil {
			return nil, err
		}

		d := models.BindingDescriptor{
			Kind:       models.BindingKind(trimString(kind)),
			EntityType: trimString(getOptionalString(req, "entity_type")),
			Field:      trimString(getOptionalString(req, "field")),
			Column:     trimString(getOptionalString(req, "column")),
			Literal:    getOptionalString(req, "literal"),
			Hint:       models.SemanticCategory(trimString(getOptionalString(req, "hint"))),
		}
		if raw := trimString(getOptionalString(req, "dataset_id")); raw != "" {
			datasetID, err := uuid.Parse(raw)
			if err != nil {
				return NewErrorResult("invalid_binding", fmt.Sprintf("dataset_id %q is not a UUID", raw)), nil
			}
			d.DatasetID = datasetID
		}

		entry, err := deps.Store.Override(ctx, templateID, key, d)
		if err != nil {
			if result := actionableError(err); result != nil {
				return result, nil
			}
			return nil, fmt.Errorf("override binding: %w", err)
		}

		deps.Logger.Info("Binding overridden via MCP",
			zap.String("template_id", templateID.String()),
			zap.String("key", entry.Key),
			zap.String("binding", entry.Descriptor.String()))

		jsonResult, err := json.Marshal(viewOf([]models.BindingEntry{*entry})[0])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal binding: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}
