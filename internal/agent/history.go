package agent

import (
	"log/slog"

	"cadence/internal/domain/models"
)

// ValidateHistory sanitizes a raw conversation history into a window
// that can be submitted to the provider verbatim. It is a pure function
// over its input and idempotent: validating an already valid history
// changes nothing.
//
// Rules:
//   - turns with an unrecognized role are dropped
//   - tool turns must carry a tool_call_id and follow an assistant turn
//     with surviving tool calls; orphans are dropped
//   - malformed tool-call entries on assistant turns are filtered
//     individually; when all are malformed the turn degrades to a
//     content-only turn
//   - user and system turns require non-null content
func ValidateHistory(history []models.Turn, logger *slog.Logger) []models.Turn {
	valid := make([]models.Turn, 0, len(history))
	hasToolCall := false

	for _, turn := range history {
		switch turn.Role {
		case models.RoleTool:
			if turn.ToolCallID == nil || *turn.ToolCallID == "" {
				logger.Warn("dropping tool turn without tool_call_id", "turn_id", turn.ID)
				continue
			}
			if !hasToolCall {
				logger.Warn("dropping orphaned tool turn", "turn_id", turn.ID)
				continue
			}
			valid = append(valid, turn)

		case models.RoleAssistant:
			cleaned := sanitizeToolCalls(turn, logger)
			if len(cleaned.ToolCalls) > 0 {
				hasToolCall = true
			}
			valid = append(valid, cleaned)

		case models.RoleUser, models.RoleSystem:
			if turn.Content == nil {
				logger.Warn("dropping turn with null content", "turn_id", turn.ID, "role", turn.Role)
				continue
			}
			valid = append(valid, turn)

		default:
			logger.Warn("dropping turn with unrecognized role", "turn_id", turn.ID, "role", turn.Role)
		}
	}

	if len(valid) > 0 && (valid[0].Role == models.RoleAssistant || valid[0].Role == models.RoleTool) {
		logger.Warn("validated history starts with a non-user turn", "role", valid[0].Role)
	}

	return valid
}

// sanitizeToolCalls filters malformed tool-call entries off an assistant
// turn. If every entry is malformed the turn degrades to content-only.
func sanitizeToolCalls(turn models.Turn, logger *slog.Logger) models.Turn {
	if len(turn.ToolCalls) == 0 {
		return turn
	}

	kept := make([]models.ToolCall, 0, len(turn.ToolCalls))
	for _, call := range turn.ToolCalls {
		if call.ID == "" || call.Type == "" || call.Function.Name == "" || call.Function.Arguments == "" {
			logger.Warn("filtering malformed tool call entry",
				"turn_id", turn.ID, "call_id", call.ID, "tool", call.Function.Name)
			continue
		}
		kept = append(kept, call)
	}

	if len(kept) == 0 {
		logger.Warn("all tool calls malformed, degrading to content-only turn", "turn_id", turn.ID)
		turn.ToolCalls = nil
		if turn.Content == nil {
			empty := ""
			turn.Content = &empty
		}
		return turn
	}

	turn.ToolCalls = kept
	return turn
}
