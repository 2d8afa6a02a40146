package tools

import (
	"cadence/internal/llm"
)

// Tool names
const (
	ToolGenerateSequence = "generate_sequence"
	ToolUpdateSequence   = "update_sequence"
	ToolResearchIndustry = "research_industry"
)

// IsSequenceTool reports whether a tool's result carries a sequence
// artifact that should be persisted and broadcast.
func IsSequenceTool(name string) bool {
	return name == ToolGenerateSequence || name == ToolUpdateSequence
}

// Definitions returns the schema for every tool the model may call.
func Definitions() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        ToolGenerateSequence,
			Description: "Generate a recruiting or sales outreach sequence",
			Parameters: map[string]any{
				"company_name":      map[string]any{"type": "string"},
				"target_role":       map[string]any{"type": "string"},
				"industry":          map[string]any{"type": "string"},
				"num_steps":         map[string]any{"type": "integer"},
				"tone":              map[string]any{"type": "string"},
				"value_proposition": map[string]any{"type": "string"},
				"preferred_channel": map[string]any{
					"type":        "string",
					"description": "Email, LinkedIn, Phone or Text. Forces every step onto this channel.",
				},
			},
			Required: []string{"target_role"},
		},
		{
			Name:        ToolUpdateSequence,
			Description: "Update an existing sequence",
			Parameters: map[string]any{
				"sequence_id": map[string]any{"type": "string"},
				"changes": map[string]any{
					"description": "Either a full replacement object with a steps list, or a list of {step_id|step_index, field, value} edits.",
				},
				"add_step":          map[string]any{"type": "boolean"},
				"preferred_channel": map[string]any{"type": "string"},
			},
			Required: []string{"sequence_id"},
		},
		{
			Name:        ToolResearchIndustry,
			Description: "Research information about industry",
			Parameters: map[string]any{
				"industry": map[string]any{"type": "string"},
			},
			Required: []string{"industry"},
		},
	}
}
