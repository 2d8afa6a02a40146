package tools

import (
	"context"
	"errors"
	"testing"
)

type stubExecutor struct {
	result any
	err    error
	panics bool
}

func (s *stubExecutor) Execute(ctx context.Context, scope Scope, input map[string]any) (any, error) {
	if s.panics {
		panic("boom")
	}
	return s.result, s.err
}

func TestRegistryExecute(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		registry := NewRegistry(testLogger())
		registry.Register("echo", &stubExecutor{result: map[string]any{"ok": true}})

		result := registry.Execute(context.Background(), Scope{}, Call{ID: "c1", Name: "echo"})
		if result.IsError {
			t.Fatalf("unexpected error: %v", result.Error)
		}
		if result.ID != "c1" || result.Name != "echo" {
			t.Errorf("result identity mismatch: %+v", result)
		}
	})

	t.Run("unknown tool", func(t *testing.T) {
		registry := NewRegistry(testLogger())

		result := registry.Execute(context.Background(), Scope{}, Call{ID: "c1", Name: "nope"})
		if !result.IsError {
			t.Fatal("expected error result for unknown tool")
		}
	})

	t.Run("executor error becomes result", func(t *testing.T) {
		registry := NewRegistry(testLogger())
		registry.Register("fail", &stubExecutor{err: errors.New("bad input")})

		result := registry.Execute(context.Background(), Scope{}, Call{ID: "c1", Name: "fail"})
		if !result.IsError || result.Error == nil {
			t.Fatal("expected error result")
		}
	})

	t.Run("panic is contained", func(t *testing.T) {
		registry := NewRegistry(testLogger())
		registry.Register("explode", &stubExecutor{panics: true})

		result := registry.Execute(context.Background(), Scope{}, Call{ID: "c1", Name: "explode"})
		if !result.IsError || result.Error == nil {
			t.Fatal("expected panic to surface as an error result")
		}
	})
}
