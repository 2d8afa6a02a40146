package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"cadence/internal/domain/models"
	"cadence/internal/llm"
)

// convertTurns converts conversation turns to Anthropic SDK format.
// System turns cannot appear mid-conversation on the wire, so their text
// is returned separately for the caller to fold into the system prompt.
func convertTurns(turns []models.Turn) ([]anthropic.MessageParam, []string, error) {
	result := make([]anthropic.MessageParam, 0, len(turns))
	var system []string

	for i, turn := range turns {
		switch turn.Role {
		case models.RoleUser:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(turn.TextContent())))

		case models.RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, 1+len(turn.ToolCalls))
			if text := turn.TextContent(); text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(text))
			}
			for _, call := range turn.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(
					call.ID,
					json.RawMessage(call.Function.Arguments),
					call.Function.Name,
				))
			}
			if len(blocks) == 0 {
				blocks = append(blocks, anthropic.NewTextBlock(""))
			}
			result = append(result, anthropic.NewAssistantMessage(blocks...))

		case models.RoleTool:
			if turn.ToolCallID == nil {
				return nil, nil, fmt.Errorf("turn %d: tool turn missing tool_call_id", i)
			}
			result = append(result, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(*turn.ToolCallID, turn.TextContent(), false),
			))

		case models.RoleSystem:
			system = append(system, turn.TextContent())

		default:
			return nil, nil, fmt.Errorf("turn %d: unsupported role '%s'", i, turn.Role)
		}
	}

	return result, system, nil
}

// convertTools converts provider-neutral tool definitions to the SDK's
// tool params.
func convertTools(defs []llm.ToolDefinition) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		tool := anthropic.ToolParam{
			Name:        def.Name,
			Description: anthropic.String(def.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: def.Parameters,
				Required:   def.Required,
			},
		}
		result = append(result, anthropic.ToolUnionParam{OfTool: &tool})
	}
	return result
}

// convertMessage converts an Anthropic response to the fixed completion shape.
func convertMessage(msg *anthropic.Message) *llm.Completion {
	completion := &llm.Completion{FinishReason: llm.FinishStop}

	var text strings.Builder
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			completion.ToolCalls = append(completion.ToolCalls, llm.ToolCall{
				ID:            block.ID,
				Name:          block.Name,
				ArgumentsJSON: string(block.Input),
			})
		}
	}
	completion.Content = text.String()

	if msg.StopReason == anthropic.StopReasonToolUse || len(completion.ToolCalls) > 0 {
		completion.FinishReason = llm.FinishToolCalls
	}

	return completion
}
