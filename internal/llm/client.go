package llm

import (
	"context"
	"fmt"

	"cadence/internal/domain/models"
)

// Client is the provider boundary. Implementations translate the
// conversation window into provider wire format and return the
// fixed-shape Completion, never raw provider types.
type Client interface {
	Complete(ctx context.Context, req *Request) (*Completion, error)
}

// Request carries a sanitized conversation window plus the tools the
// model may call.
type Request struct {
	System string
	Turns  []models.Turn
	Tools  []ToolDefinition
}

// ToolDefinition describes one callable tool in provider-neutral form.
// Parameters is a JSON-schema properties map.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
	Required    []string
}

// Finish reasons
const (
	FinishStop      = "stop"
	FinishToolCalls = "tool_calls"
)

// Completion is the deserialized model response.
type Completion struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
}

// ToolCall is one tool invocation requested by the model. ArgumentsJSON
// is kept as the raw JSON string; executors parse it themselves.
type ToolCall struct {
	ID            string
	Name          string
	ArgumentsJSON string
}

// Failure kinds for ProviderError
const (
	FailureRateLimited = "rate_limited"
	FailureAPI         = "api_error"
	FailureTransport   = "transport_error"
)

// ProviderError classifies a failed provider call. All implementations
// return this type so the orchestration loop can treat provider
// failures uniformly.
type ProviderError struct {
	Kind    string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("llm provider %s: %s", e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
