package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Call represents a single tool invocation request.
type Call struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// Result represents the result of a tool execution. A failed execution
// is carried in Error with IsError set; it is never raised to the caller.
type Result struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Result  any    `json:"result"`
	Error   error  `json:"error"`
	IsError bool   `json:"is_error"`
}

// Registry manages tool executors and handles tool execution.
// It is thread-safe and can be used concurrently.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
	logger    *slog.Logger
}

// NewRegistry creates a new tool registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		executors: make(map[string]Executor),
		logger:    logger,
	}
}

// Register adds a tool executor to the registry.
// If a tool with the same name already exists, it will be replaced.
func (r *Registry) Register(name string, executor Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[name] = executor
}

// Get retrieves a tool executor by name.
// Returns nil if the tool is not registered.
func (r *Registry) Get(name string) Executor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.executors[name]
}

// Execute runs a single tool and returns the result. Execution failures,
// including panics inside an executor, come back as an error Result so
// the conversation loop can report them to the model instead of dying.
func (r *Registry) Execute(ctx context.Context, scope Scope, call Call) (result Result) {
	result = Result{ID: call.ID, Name: call.Name}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool panicked", "tool", call.Name, "panic", rec)
			result.Result = nil
			result.Error = fmt.Errorf("tool %s panicked: %v", call.Name, rec)
			result.IsError = true
		}
	}()

	executor := r.Get(call.Name)
	if executor == nil {
		result.Error = fmt.Errorf("tool not found: %s", call.Name)
		result.IsError = true
		return result
	}

	value, err := executor.Execute(ctx, scope, call.Input)
	if err != nil {
		result.Error = err
		result.IsError = true
		return result
	}

	result.Result = value
	return result
}
