package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"cadence/internal/domain"
	"cadence/internal/domain/models"
	"cadence/internal/llm"
	"cadence/internal/tools"
)

type mockClient struct {
	completions []*llm.Completion
	err         error
	requests    []*llm.Request
}

func (m *mockClient) Complete(ctx context.Context, req *llm.Request) (*llm.Completion, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.completions) == 0 {
		return &llm.Completion{Content: "ok", FinishReason: llm.FinishStop}, nil
	}
	next := m.completions[0]
	m.completions = m.completions[1:]
	return next, nil
}

type mockSessionRepo struct {
	session *models.Session
	renames []string
}

func (m *mockSessionRepo) Create(ctx context.Context, session *models.Session) error { return nil }

func (m *mockSessionRepo) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	if m.session == nil || m.session.ID != sessionID {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	clone := *m.session
	return &clone, nil
}

func (m *mockSessionRepo) ListByUser(ctx context.Context, userID string) ([]models.Session, error) {
	return []models.Session{}, nil
}

func (m *mockSessionRepo) Rename(ctx context.Context, sessionID, name string) error {
	m.session.Name = name
	m.renames = append(m.renames, name)
	return nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, sessionID string) error { return nil }

type mockTurnRepo struct {
	turns     []models.Turn
	appendErr error
}

func (m *mockTurnRepo) Append(ctx context.Context, turn *models.Turn) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	turn.ID = int64(len(m.turns) + 1)
	m.turns = append(m.turns, *turn)
	return nil
}

func (m *mockTurnRepo) ListBySession(ctx context.Context, sessionID string) ([]models.Turn, error) {
	out := make([]models.Turn, 0, len(m.turns))
	for _, turn := range m.turns {
		if turn.SessionID == sessionID {
			out = append(out, turn)
		}
	}
	return out, nil
}

type recordedEvent struct {
	kind    string
	tool    string
	content string
}

type mockEvents struct {
	events []recordedEvent
}

func (m *mockEvents) ChatMessage(sessionID, role, content string) {
	m.events = append(m.events, recordedEvent{kind: "chat_message", content: content})
}

func (m *mockEvents) ToolCallStart(sessionID, tool string) {
	m.events = append(m.events, recordedEvent{kind: "tool_call_start", tool: tool})
}

func (m *mockEvents) ToolCallEnd(sessionID, tool string) {
	m.events = append(m.events, recordedEvent{kind: "tool_call_end", tool: tool})
}

func (m *mockEvents) ToolCallError(sessionID, tool, message string) {
	m.events = append(m.events, recordedEvent{kind: "tool_call_error", tool: tool, content: message})
}

type mockPublisher struct {
	confirm  bool
	received *models.Sequence
}

func (m *mockPublisher) Broadcast(ctx context.Context, sessionID string, seq *models.Sequence) bool {
	m.received = seq
	return m.confirm
}

type stubSequenceExecutor struct {
	seq *models.Sequence
	err error
}

func (s *stubSequenceExecutor) Execute(ctx context.Context, scope tools.Scope, input map[string]any) (any, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.seq, nil
}

type fixture struct {
	agent     *Agent
	client    *mockClient
	sessions  *mockSessionRepo
	turns     *mockTurnRepo
	events    *mockEvents
	publisher *mockPublisher
	registry  *tools.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := testLogger()
	f := &fixture{
		client:    &mockClient{},
		sessions:  &mockSessionRepo{session: &models.Session{ID: "sess-1", Name: "Session 2026-08-27 10:00"}},
		turns:     &mockTurnRepo{},
		events:    &mockEvents{},
		publisher: &mockPublisher{confirm: true},
		registry:  tools.NewRegistry(logger),
	}
	f.agent = New(f.client, f.registry, f.sessions, f.turns, f.events, f.publisher, logger)
	return f
}

func toolCallCompletion(name, args string) *llm.Completion {
	return &llm.Completion{
		ToolCalls: []llm.ToolCall{
			{ID: "call_1", Name: name, ArgumentsJSON: args},
		},
		FinishReason: llm.FinishToolCalls,
	}
}

func generatedSequence() *models.Sequence {
	return &models.Sequence{
		ID:             "seq_123",
		SessionID:      "sess-1",
		Title:          "Engineer Recruitment for Acme",
		TargetRole:     "Engineer",
		TargetIndustry: "technology",
		Steps: []models.Step{
			{ID: "step_1", Step: 1, Day: 0, Channel: models.ChannelEmail, Message: "hi"},
		},
	}
}

func TestProcessMessagePlainReply(t *testing.T) {
	f := newFixture(t)
	f.client.completions = []*llm.Completion{
		{Content: "Happy to help with outreach planning.", FinishReason: llm.FinishStop},
	}

	reply, err := f.agent.ProcessMessage(context.Background(), "sess-1", "", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Happy to help with outreach planning." {
		t.Errorf("unexpected reply: %q", reply)
	}

	if len(f.turns.turns) != 2 {
		t.Fatalf("expected user + assistant turns persisted, got %d", len(f.turns.turns))
	}
	if f.turns.turns[0].Role != models.RoleUser || f.turns.turns[0].UserID != models.DefaultUserID {
		t.Errorf("unexpected user turn: %+v", f.turns.turns[0])
	}
	if f.turns.turns[1].Role != models.RoleAssistant {
		t.Errorf("unexpected second turn role: %s", f.turns.turns[1].Role)
	}

	if len(f.events.events) != 1 || f.events.events[0].kind != "chat_message" {
		t.Fatalf("expected a single chat_message event, got %+v", f.events.events)
	}
}

func TestProcessMessageConfirmedBroadcast(t *testing.T) {
	f := newFixture(t)
	f.registry.Register(tools.ToolGenerateSequence, &stubSequenceExecutor{seq: generatedSequence()})
	f.client.completions = []*llm.Completion{
		toolCallCompletion(tools.ToolGenerateSequence, `{"target_role":"Engineer"}`),
	}

	reply, err := f.agent.ProcessMessage(context.Background(), "sess-1", "1", "recruit engineers")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Deterministic acknowledgment, not a second model call.
	if len(f.client.requests) != 1 {
		t.Fatalf("expected a single model call, got %d", len(f.client.requests))
	}
	if !strings.Contains(reply, "recruiting sequence for Engineer in the technology industry") {
		t.Errorf("unexpected acknowledgment: %q", reply)
	}
	if !strings.Contains(reply, "1 steps") {
		t.Errorf("acknowledgment missing step count: %q", reply)
	}

	if f.publisher.received == nil || f.publisher.received.ID != "seq_123" {
		t.Fatalf("expected artifact broadcast, got %+v", f.publisher.received)
	}

	kinds := make([]string, 0, len(f.events.events))
	for _, ev := range f.events.events {
		kinds = append(kinds, ev.kind)
	}
	want := []string{"tool_call_start", "tool_call_end", "chat_message"}
	if len(kinds) != len(want) {
		t.Fatalf("expected events %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, kinds)
		}
	}

	// user, assistant w/ tool calls, tool result, acknowledgment
	if len(f.turns.turns) != 4 {
		t.Fatalf("expected 4 persisted turns, got %d", len(f.turns.turns))
	}
	if len(f.turns.turns[1].ToolCalls) != 1 {
		t.Errorf("assistant turn should carry tool calls: %+v", f.turns.turns[1])
	}
	if f.turns.turns[2].Role != models.RoleTool {
		t.Errorf("expected tool turn third, got %s", f.turns.turns[2].Role)
	}
}

func TestProcessMessageUnconfirmedBroadcastFallsBack(t *testing.T) {
	f := newFixture(t)
	f.publisher.confirm = false
	f.registry.Register(tools.ToolGenerateSequence, &stubSequenceExecutor{seq: generatedSequence()})
	f.client.completions = []*llm.Completion{
		toolCallCompletion(tools.ToolGenerateSequence, `{"target_role":"Engineer"}`),
		{Content: "Your sequence is ready in the panel.", FinishReason: llm.FinishStop},
	}

	reply, err := f.agent.ProcessMessage(context.Background(), "sess-1", "1", "recruit engineers")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Your sequence is ready in the panel." {
		t.Errorf("unexpected reply: %q", reply)
	}
	if len(f.client.requests) != 2 {
		t.Fatalf("expected two model calls, got %d", len(f.client.requests))
	}

	// The resubmission ends with the unpersisted follow-up instruction.
	second := f.client.requests[1]
	last := second.Turns[len(second.Turns)-1]
	if last.Role != models.RoleSystem || last.Content == nil || !strings.Contains(*last.Content, "DO NOT repeat") {
		t.Fatalf("expected trailing system follow-up instruction, got %+v", last)
	}
	for _, turn := range f.turns.turns {
		if turn.Role == models.RoleSystem {
			t.Fatal("follow-up instruction must not be persisted")
		}
	}
}

func TestProcessMessageToolError(t *testing.T) {
	f := newFixture(t)
	f.registry.Register(tools.ToolGenerateSequence, &stubSequenceExecutor{err: errors.New("boom")})
	f.client.completions = []*llm.Completion{
		toolCallCompletion(tools.ToolGenerateSequence, `{}`),
		{Content: "Something went wrong, want to retry?", FinishReason: llm.FinishStop},
	}

	if _, err := f.agent.ProcessMessage(context.Background(), "sess-1", "1", "recruit"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sawError bool
	for _, ev := range f.events.events {
		if ev.kind == "tool_call_error" {
			sawError = true
		}
	}
	if !sawError {
		t.Fatalf("expected tool_call_error event, got %+v", f.events.events)
	}

	// The tool turn persists the error payload for the model to narrate.
	var toolTurn *models.Turn
	for i := range f.turns.turns {
		if f.turns.turns[i].Role == models.RoleTool {
			toolTurn = &f.turns.turns[i]
		}
	}
	if toolTurn == nil || !strings.Contains(toolTurn.TextContent(), `"error"`) {
		t.Fatalf("expected persisted error payload, got %+v", toolTurn)
	}
}

func TestProcessMessageLLMFailurePublishesApology(t *testing.T) {
	f := newFixture(t)
	f.client.err = &llm.ProviderError{Kind: llm.FailureRateLimited, Message: "429"}

	_, err := f.agent.ProcessMessage(context.Background(), "sess-1", "1", "hello")
	if err == nil {
		t.Fatal("expected error")
	}

	if len(f.events.events) != 1 {
		t.Fatalf("expected one event, got %+v", f.events.events)
	}
	ev := f.events.events[0]
	if ev.kind != "chat_message" || !strings.Contains(ev.content, "I'm sorry, but I encountered an error") {
		t.Fatalf("expected apology chat message, got %+v", ev)
	}
}

func TestProcessMessageUnknownSession(t *testing.T) {
	f := newFixture(t)
	f.turns.appendErr = fmt.Errorf("session missing: %w", domain.ErrNotFound)

	_, err := f.agent.ProcessMessage(context.Background(), "ghost", "1", "hello")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound passthrough, got %v", err)
	}
	if len(f.events.events) != 0 {
		t.Fatalf("no apology for unknown sessions, got %+v", f.events.events)
	}
}

func TestMaybeRenameSession(t *testing.T) {
	t.Run("renames from first reply with truncation", func(t *testing.T) {
		f := newFixture(t)
		f.client.completions = []*llm.Completion{
			{Content: "Let's plan a multi-step outreach sequence for your engineering hires.", FinishReason: llm.FinishStop},
		}

		if _, err := f.agent.ProcessMessage(context.Background(), "sess-1", "1", "hi"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(f.sessions.renames) != 1 {
			t.Fatalf("expected one rename, got %v", f.sessions.renames)
		}
		name := f.sessions.renames[0]
		if !strings.HasSuffix(name, "...") {
			t.Errorf("expected truncated name with ellipsis, got %q", name)
		}
		if len(name) > maxAutoNameLen+3 {
			t.Errorf("name too long: %q", name)
		}
	})

	t.Run("truncates multi-byte replies on rune boundaries", func(t *testing.T) {
		f := newFixture(t)
		f.client.completions = []*llm.Completion{
			{Content: "ソフトウェア開発者向けのアウトリーチ計画を一緒に作りましょう。まずは対象の役割を教えてください。", FinishReason: llm.FinishStop},
		}

		if _, err := f.agent.ProcessMessage(context.Background(), "sess-1", "1", "こんにちは"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(f.sessions.renames) != 1 {
			t.Fatalf("expected one rename, got %v", f.sessions.renames)
		}
		name := f.sessions.renames[0]
		if !utf8.ValidString(name) {
			t.Fatalf("rename produced invalid UTF-8: %q", name)
		}
		if !strings.HasSuffix(name, "...") {
			t.Errorf("expected truncated name with ellipsis, got %q", name)
		}
		if got := utf8.RuneCountInString(strings.TrimSuffix(name, "...")); got > maxAutoNameLen {
			t.Errorf("name keeps %d characters, want at most %d", got, maxAutoNameLen)
		}
	})

	t.Run("keeps user-chosen names", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.session.Name = "Engineering pipeline"
		f.client.completions = []*llm.Completion{
			{Content: "Sure, let's keep working on it.", FinishReason: llm.FinishStop},
		}

		if _, err := f.agent.ProcessMessage(context.Background(), "sess-1", "1", "hi"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(f.sessions.renames) != 0 {
			t.Fatalf("expected no rename, got %v", f.sessions.renames)
		}
	})

	t.Run("skips replies shorter than five characters", func(t *testing.T) {
		f := newFixture(t)
		f.client.completions = []*llm.Completion{
			{Content: "Ok.", FinishReason: llm.FinishStop},
		}

		if _, err := f.agent.ProcessMessage(context.Background(), "sess-1", "1", "hi"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(f.sessions.renames) != 0 {
			t.Fatalf("expected no rename, got %v", f.sessions.renames)
		}
	})
}
