package agent

import (
	"log/slog"
	"testing"

	"cadence/internal/domain/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func strptr(s string) *string { return &s }

func userTurn(id int64, content string) models.Turn {
	return models.Turn{ID: id, Role: models.RoleUser, Content: strptr(content)}
}

func assistantTurn(id int64, content string, calls ...models.ToolCall) models.Turn {
	t := models.Turn{ID: id, Role: models.RoleAssistant, ToolCalls: calls}
	if content != "" || len(calls) == 0 {
		t.Content = strptr(content)
	}
	return t
}

func toolTurn(id int64, callID, content string) models.Turn {
	t := models.Turn{ID: id, Role: models.RoleTool, Content: strptr(content)}
	if callID != "" {
		t.ToolCallID = &callID
	}
	return t
}

func wellFormedCall(id string) models.ToolCall {
	return models.ToolCall{
		ID:   id,
		Type: "function",
		Function: models.ToolCallFunction{
			Name:      "generate_sequence",
			Arguments: `{"target_role":"Engineer"}`,
		},
	}
}

func TestValidateHistory(t *testing.T) {
	t.Run("valid history passes unchanged", func(t *testing.T) {
		history := []models.Turn{
			userTurn(1, "hello"),
			assistantTurn(2, "", wellFormedCall("call_1")),
			toolTurn(3, "call_1", `{"ok":true}`),
			assistantTurn(4, "done"),
		}

		got := ValidateHistory(history, testLogger())
		if len(got) != len(history) {
			t.Fatalf("expected %d turns, got %d", len(history), len(got))
		}
		for i := range history {
			if got[i].ID != history[i].ID {
				t.Errorf("turn %d: expected id %d, got %d", i, history[i].ID, got[i].ID)
			}
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		history := []models.Turn{
			userTurn(1, "hello"),
			assistantTurn(2, "", wellFormedCall("call_1"), models.ToolCall{ID: "broken"}),
			toolTurn(3, "", "orphan"),
			{ID: 4, Role: "narrator", Content: strptr("nope")},
			assistantTurn(5, "done"),
		}

		once := ValidateHistory(history, testLogger())
		twice := ValidateHistory(once, testLogger())
		if len(once) != len(twice) {
			t.Fatalf("second pass changed length: %d vs %d", len(once), len(twice))
		}
		for i := range once {
			if once[i].ID != twice[i].ID || len(once[i].ToolCalls) != len(twice[i].ToolCalls) {
				t.Errorf("turn %d changed on second pass", i)
			}
		}
	})

	t.Run("drops tool turn without tool_call_id", func(t *testing.T) {
		history := []models.Turn{
			userTurn(1, "hello"),
			assistantTurn(2, "", wellFormedCall("call_1")),
			toolTurn(3, "", "missing id"),
		}

		got := ValidateHistory(history, testLogger())
		if len(got) != 2 {
			t.Fatalf("expected 2 turns, got %d", len(got))
		}
	})

	t.Run("drops orphaned tool turn", func(t *testing.T) {
		history := []models.Turn{
			toolTurn(1, "call_1", "no assistant before me"),
			userTurn(2, "hello"),
		}

		got := ValidateHistory(history, testLogger())
		if len(got) != 1 || got[0].Role != models.RoleUser {
			t.Fatalf("expected only the user turn to survive, got %+v", got)
		}
	})

	t.Run("filters malformed tool call entries individually", func(t *testing.T) {
		history := []models.Turn{
			userTurn(1, "hello"),
			assistantTurn(2, "", wellFormedCall("call_1"), models.ToolCall{ID: "call_2", Type: "function"}),
		}

		got := ValidateHistory(history, testLogger())
		if len(got) != 2 {
			t.Fatalf("expected 2 turns, got %d", len(got))
		}
		if len(got[1].ToolCalls) != 1 || got[1].ToolCalls[0].ID != "call_1" {
			t.Fatalf("expected only the well-formed call to survive, got %+v", got[1].ToolCalls)
		}
	})

	t.Run("degrades to content-only when all calls malformed", func(t *testing.T) {
		history := []models.Turn{
			userTurn(1, "hello"),
			assistantTurn(2, "", models.ToolCall{ID: "call_2"}),
			toolTurn(3, "call_2", "now orphaned"),
		}

		got := ValidateHistory(history, testLogger())
		if len(got) != 2 {
			t.Fatalf("expected 2 turns, got %d", len(got))
		}
		degraded := got[1]
		if len(degraded.ToolCalls) != 0 {
			t.Errorf("expected tool calls stripped, got %+v", degraded.ToolCalls)
		}
		if degraded.Content == nil {
			t.Error("expected non-null content after degrade")
		}
	})

	t.Run("drops user turn with null content", func(t *testing.T) {
		history := []models.Turn{
			{ID: 1, Role: models.RoleUser},
			userTurn(2, "hello"),
		}

		got := ValidateHistory(history, testLogger())
		if len(got) != 1 || got[0].ID != 2 {
			t.Fatalf("expected null-content turn dropped, got %+v", got)
		}
	})

	t.Run("drops unrecognized roles", func(t *testing.T) {
		history := []models.Turn{
			userTurn(1, "hello"),
			{ID: 2, Role: "moderator", Content: strptr("hm")},
		}

		got := ValidateHistory(history, testLogger())
		if len(got) != 1 {
			t.Fatalf("expected 1 turn, got %d", len(got))
		}
	})

	t.Run("empty history", func(t *testing.T) {
		if got := ValidateHistory(nil, testLogger()); len(got) != 0 {
			t.Fatalf("expected empty result, got %+v", got)
		}
	})
}
