package tools

import "context"

// Scope identifies the session a tool call executes on behalf of.
// Executors that touch persisted state key their reads and writes by it.
type Scope struct {
	SessionID string
	UserID    string
}

// Executor defines the interface for executing a tool.
// Implementations must be thread-safe and respect context cancellation.
type Executor interface {
	// Execute runs the tool with the given input parameters.
	// The input map contains the tool-specific parameters as specified in the tool schema.
	// The returned value must be JSON-serializable (maps, slices, primitives, or
	// domain structs).
	Execute(ctx context.Context, scope Scope, input map[string]any) (any, error)
}
