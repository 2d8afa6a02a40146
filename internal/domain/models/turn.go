package models

import (
	"time"
)

// Turn roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Turn is a single entry in a session's conversation history.
//
// Assistant turns that requested tools carry ToolCalls and may have nil
// Content. Tool turns carry the ToolCallID they answer and the serialized
// result as Content.
type Turn struct {
	ID         int64      `json:"id"`
	SessionID  string     `json:"session_id"`
	UserID     string     `json:"user_id,omitempty"`
	Role       string     `json:"role"`
	Content    *string    `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID *string    `json:"tool_call_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ToolCall is one tool invocation requested by an assistant turn.
// Stored as JSONB alongside the turn.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"` // always "function"
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction names the tool and carries its JSON-encoded arguments.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// TextContent returns the turn's content, or "" when nil.
func (t *Turn) TextContent() string {
	if t.Content == nil {
		return ""
	}
	return *t.Content
}

// NewUserTurn builds an unsaved user turn.
func NewUserTurn(sessionID, userID, content string) *Turn {
	return &Turn{
		SessionID: sessionID,
		UserID:    userID,
		Role:      RoleUser,
		Content:   &content,
	}
}

// NewAssistantTurn builds an unsaved assistant turn. content may be empty
// when the assistant only requested tools.
func NewAssistantTurn(sessionID, content string, toolCalls []ToolCall) *Turn {
	t := &Turn{
		SessionID: sessionID,
		Role:      RoleAssistant,
		ToolCalls: toolCalls,
	}
	if content != "" || len(toolCalls) == 0 {
		t.Content = &content
	}
	return t
}

// NewToolTurn builds an unsaved tool-result turn answering toolCallID.
func NewToolTurn(sessionID, toolCallID, content string) *Turn {
	return &Turn{
		SessionID:  sessionID,
		Role:       RoleTool,
		Content:    &content,
		ToolCallID: &toolCallID,
	}
}
