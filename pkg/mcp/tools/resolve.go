package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/services"
)

// RegisterResolveTool adds resolve_placeholders.
func RegisterResolveTool(s *server.MCPServer, deps *BindingToolDeps) {
	tool := mcp.NewTool(
		"resolve_placeholders",
		mcp.WithDescription(`Resolve every placeholder of a template to text.
Values come from the identified entities, then stored bindings, then reference datasets, then synthetic generation.
Every placeholder always gets a value; tiers and notes explain where each one came from.`),
		mcp.WithString(
			"template_id",
			mcp.Required(),
			mcp.Description("UUID of the registered template"),
		),
		mcp.WithObject(
			"identifiers",
			mcp.Description(`Entity identifiers by entity type, e.g. {"vessel": 9321483, "buyer": "3f2a..."}`),
		),
		mcp.WithObject(
			"dataset_keys",
			mcp.Description(`Explicit row keys by dataset name or id, e.g. {"vessel_particulars": "9321483"}`),
		),
		mcp.WithString(
			"seed",
			mcp.Description("Optional seed that varies synthetic values between otherwise identical requests"),
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
		identifiers, err := stringMapArg(req, "identifiers")
		if err != nil {
			return NewErrorResult("invalid_arguments", err.Error()), nil
		}
		datasetKeys, err := stringMapArg(req, "dataset_keys")
		if err != nil {
			return NewErrorResult("invalid_arguments", err.Error()), nil
		}

		res, err := deps.Resolution.Resolve(ctx, services.ResolveRequest{
			TemplateID:  templateID,
			Identifiers: identifiers,
			DatasetKeys: datasetKeys,
			Seed:        getOptionalString(req, "seed"),
		})
		if err != nil {
			if result := actionableError(err); result != nil {
				return result, nil
			}
			deps.Logger.Error("resolve_placeholders failed", zap.String("template_id", templateID.String()), zap.Error(err))
			return nil, fmt.Errorf("resolve placeholders: %w", err)
		}

		jsonResult, err := json.Marshal(res)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal resolution: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}
