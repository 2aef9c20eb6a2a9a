package prompts

import (
	"fmt"
	"strings"
)

// SyntheticValue is the model's answer to BuildSyntheticValuePrompt.
type SyntheticValue struct {
	Value string `json:"value"`
}

// BuildSyntheticValuePrompt asks for one realistic filler value. example is
// the deterministic value, given as a format reference.
func BuildSyntheticValuePrompt(placeholder, category, example string) string {
	var prompt strings.Builder

	prompt.WriteString("Produce a realistic value for a field in a commercial or maritime trade document.\n\n")
	prompt.WriteString(fmt.Sprintf("Field: %s\n", placeholder))
	prompt.WriteString(fmt.Sprintf("Category: %s\n", category))
	if example != "" {
		prompt.WriteString(fmt.Sprintf("Format reference: %s\n", example))
	}
	prompt.WriteString("\nThe value must look like real data, never like a label or the field name itself. ")
	prompt.WriteString("Keep it under 80 characters.\n\n")
	prompt.WriteString(`Respond with JSON: {"value": "..."}`)
	prompt.WriteString("\n")

	return prompt.String()
}

// BuildSyntheticValueSystemMessage returns the system message for synthetic values.
func BuildSyntheticValueSystemMessage() string {
	return `You generate plausible sample data for document previews. You answer only with JSON.`
}
