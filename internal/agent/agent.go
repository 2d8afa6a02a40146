package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"cadence/internal/domain"
	"cadence/internal/domain/models"
	"cadence/internal/domain/repositories"
	"cadence/internal/llm"
	"cadence/internal/tools"
)

// maxAutoNameLen is how many characters of the first assistant reply
// become the session name.
const maxAutoNameLen = 30

// Events publishes chat and tool lifecycle events to a session's
// subscribers. Implementations must tolerate sessions with no
// subscribers.
type Events interface {
	ChatMessage(sessionID, role, content string)
	ToolCallStart(sessionID, tool string)
	ToolCallEnd(sessionID, tool string)
	ToolCallError(sessionID, tool, message string)
}

// SequencePublisher persists a sequence artifact and pushes it to the
// session's subscribers. It reports whether delivery was confirmed.
type SequencePublisher interface {
	Broadcast(ctx context.Context, sessionID string, seq *models.Sequence) bool
}

// Agent runs the orchestration loop for one inbound user message:
// persist, submit to the LLM, dispatch tool calls in order, publish the
// artifact, and deliver the final reply.
type Agent struct {
	client    llm.Client
	registry  *tools.Registry
	sessions  repositories.SessionRepository
	turns     repositories.TurnRepository
	events    Events
	publisher SequencePublisher
	logger    *slog.Logger
}

// New creates an Agent.
func New(
	client llm.Client,
	registry *tools.Registry,
	sessions repositories.SessionRepository,
	turns repositories.TurnRepository,
	events Events,
	publisher SequencePublisher,
	logger *slog.Logger,
) *Agent {
	return &Agent{
		client:    client,
		registry:  registry,
		sessions:  sessions,
		turns:     turns,
		events:    events,
		publisher: publisher,
		logger:    logger,
	}
}

// ProcessMessage handles one user message end to end and returns the
// final natural-language reply. On failure the session still receives
// an apologetic chat message before the error is returned.
func (a *Agent) ProcessMessage(ctx context.Context, sessionID, userID, content string) (string, error) {
	if userID == "" {
		userID = models.DefaultUserID
	}

	userTurn := models.NewUserTurn(sessionID, userID, content)
	if err := a.turns.Append(ctx, userTurn); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", err
		}
		return "", a.fail(sessionID, fmt.Errorf("persist user turn: %w", err))
	}

	history, err := a.turns.ListBySession(ctx, sessionID)
	if err != nil {
		return "", a.fail(sessionID, fmt.Errorf("load history: %w", err))
	}
	window := ValidateHistory(history, a.logger)

	completion, err := a.client.Complete(ctx, &llm.Request{
		System: SystemPrompt(),
		Turns:  window,
		Tools:  tools.Definitions(),
	})
	if err != nil {
		return "", a.fail(sessionID, err)
	}

	if len(completion.ToolCalls) == 0 {
		return a.deliverPlainReply(ctx, sessionID, completion.Content)
	}

	return a.dispatchTools(ctx, sessionID, userID, window, completion)
}

// deliverPlainReply persists and publishes a reply with no tool calls.
func (a *Agent) deliverPlainReply(ctx context.Context, sessionID, content string) (string, error) {
	turn := models.NewAssistantTurn(sessionID, content, nil)
	if err := a.turns.Append(ctx, turn); err != nil {
		return "", a.fail(sessionID, fmt.Errorf("persist assistant turn: %w", err))
	}
	a.maybeRenameSession(ctx, sessionID, content)
	a.events.ChatMessage(sessionID, models.RoleAssistant, content)
	return content, nil
}

// dispatchTools executes every requested tool strictly in the order the
// model returned them, persisting each result immediately.
func (a *Agent) dispatchTools(ctx context.Context, sessionID, userID string, window []models.Turn, completion *llm.Completion) (string, error) {
	// The assistant turn is persisted with its raw tool calls but never
	// delivered to the chat transcript; its content may contain leaked
	// structured data.
	assistantTurn := models.NewAssistantTurn(sessionID, completion.Content, toModelToolCalls(completion.ToolCalls))
	if err := a.turns.Append(ctx, assistantTurn); err != nil {
		return "", a.fail(sessionID, fmt.Errorf("persist assistant turn: %w", err))
	}

	scope := tools.Scope{SessionID: sessionID, UserID: userID}
	var artifact *models.Sequence

	toolTurns := make([]models.Turn, 0, len(completion.ToolCalls))
	for _, call := range completion.ToolCalls {
		a.events.ToolCallStart(sessionID, call.Name)

		result := a.executeCall(ctx, scope, call)
		if result.IsError {
			a.events.ToolCallError(sessionID, call.Name, result.Error.Error())
		} else {
			a.events.ToolCallEnd(sessionID, call.Name)
		}

		payload := serializeResult(result)
		toolTurn := models.NewToolTurn(sessionID, call.ID, payload)
		if err := a.turns.Append(ctx, toolTurn); err != nil {
			return "", a.fail(sessionID, fmt.Errorf("persist tool turn: %w", err))
		}
		toolTurns = append(toolTurns, *toolTurn)

		if !result.IsError && tools.IsSequenceTool(call.Name) {
			if seq, ok := result.Result.(*models.Sequence); ok {
				artifact = seq
			}
		}
	}

	if artifact != nil {
		if confirmed := a.publisher.Broadcast(ctx, sessionID, artifact); confirmed {
			return a.deliverAcknowledgment(ctx, sessionID, artifact)
		}
		a.logger.Warn("sequence broadcast unconfirmed, falling back to second submit", "session_id", sessionID)
	}

	return a.secondSubmit(ctx, sessionID, window, *assistantTurn, toolTurns, artifact)
}

// executeCall parses one tool call's arguments and runs it through the
// registry. Argument parse failures become error results, not turn
// failures.
func (a *Agent) executeCall(ctx context.Context, scope tools.Scope, call llm.ToolCall) tools.Result {
	input := map[string]any{}
	if call.ArgumentsJSON != "" {
		if err := json.Unmarshal([]byte(call.ArgumentsJSON), &input); err != nil {
			return tools.Result{
				ID:      call.ID,
				Name:    call.Name,
				Error:   fmt.Errorf("invalid arguments for %s: %w", call.Name, err),
				IsError: true,
			}
		}
	}
	return a.registry.Execute(ctx, scope, tools.Call{ID: call.ID, Name: call.Name, Input: input})
}

// deliverAcknowledgment synthesizes the short deterministic reply used
// after a confirmed broadcast, keeping sequence content out of the chat.
func (a *Agent) deliverAcknowledgment(ctx context.Context, sessionID string, seq *models.Sequence) (string, error) {
	ack := acknowledgment(seq)
	turn := models.NewAssistantTurn(sessionID, ack, nil)
	if err := a.turns.Append(ctx, turn); err != nil {
		return "", a.fail(sessionID, fmt.Errorf("persist acknowledgment: %w", err))
	}
	a.maybeRenameSession(ctx, sessionID, ack)
	a.events.ChatMessage(sessionID, models.RoleAssistant, ack)
	return ack, nil
}

// secondSubmit re-submits once with a system-level follow-up instruction
// so the model acknowledges briefly without repeating structured
// content. The instruction itself is never persisted.
func (a *Agent) secondSubmit(ctx context.Context, sessionID string, window []models.Turn, assistantTurn models.Turn, toolTurns []models.Turn, artifact *models.Sequence) (string, error) {
	targetRole, industry := "", ""
	if artifact != nil {
		targetRole, industry = artifact.TargetRole, artifact.TargetIndustry
	}
	instruction := followupPrompt(targetRole, industry)

	resubmission := make([]models.Turn, 0, len(window)+len(toolTurns)+2)
	resubmission = append(resubmission, window...)
	resubmission = append(resubmission, assistantTurn)
	resubmission = append(resubmission, toolTurns...)
	resubmission = append(resubmission, models.Turn{
		Role:    models.RoleSystem,
		Content: &instruction,
	})

	completion, err := a.client.Complete(ctx, &llm.Request{
		System: SystemPrompt(),
		Turns:  resubmission,
		Tools:  tools.Definitions(),
	})
	if err != nil {
		return "", a.fail(sessionID, err)
	}

	return a.deliverPlainReply(ctx, sessionID, completion.Content)
}

// maybeRenameSession names a session from its first assistant reply
// while it still carries the placeholder name. Races between replies
// resolve last-write-wins.
func (a *Agent) maybeRenameSession(ctx context.Context, sessionID, content string) {
	session, err := a.sessions.Get(ctx, sessionID)
	if err != nil {
		a.logger.Warn("session lookup for auto-rename failed", "session_id", sessionID, "error", err)
		return
	}
	if !session.HasDefaultName() {
		return
	}

	// Truncation counts runes, not bytes; slicing mid-rune would hand
	// the store invalid UTF-8.
	name := strings.TrimSpace(content)
	if runes := []rune(name); len(runes) > maxAutoNameLen {
		name = strings.TrimSpace(string(runes[:maxAutoNameLen])) + "..."
	}
	if utf8.RuneCountInString(name) < 5 {
		return
	}

	if err := a.sessions.Rename(ctx, sessionID, name); err != nil {
		a.logger.Warn("session auto-rename failed", "session_id", sessionID, "error", err)
		return
	}
	a.logger.Info("renamed session from first reply", "session_id", sessionID, "name", name)
}

// fail publishes the user-visible apology and returns the error. The
// user is never left without a terminal chat message.
func (a *Agent) fail(sessionID string, err error) error {
	a.logger.Error("message processing failed", "session_id", sessionID, "error", err)
	a.events.ChatMessage(sessionID, models.RoleAssistant, apology(err))
	return err
}

// serializeResult renders a tool result as the JSON body of its tool
// turn. Failures are encoded as an {error} object the model can narrate.
func serializeResult(result tools.Result) string {
	var value any
	if result.IsError {
		value = map[string]string{"error": result.Error.Error()}
	} else {
		value = result.Result
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf(`{"error":"unserializable result from %s"}`, result.Name)
	}
	return string(raw)
}

// toModelToolCalls converts provider tool calls into the persisted
// tool-call shape.
func toModelToolCalls(calls []llm.ToolCall) []models.ToolCall {
	out := make([]models.ToolCall, 0, len(calls))
	for _, call := range calls {
		out = append(out, models.ToolCall{
			ID:   call.ID,
			Type: "function",
			Function: models.ToolCallFunction{
				Name:      call.Name,
				Arguments: call.ArgumentsJSON,
			},
		})
	}
	return out
}
