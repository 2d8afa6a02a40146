package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"cadence/internal/domain"
	"cadence/internal/domain/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// mockTransport fails the first failures publishes, then succeeds.
type mockTransport struct {
	failures  int
	published []publishRecord
}

type publishRecord struct {
	sessionID string
	event     string
	payload   any
}

func (m *mockTransport) Publish(sessionID, event string, payload any) error {
	if m.failures > 0 {
		m.failures--
		return errors.New("no subscriber reachable")
	}
	m.published = append(m.published, publishRecord{sessionID: sessionID, event: event, payload: payload})
	return nil
}

type mockSequenceStore struct {
	stored    *models.Sequence
	upsertErr error
	deletes   []string
}

func (m *mockSequenceStore) UpsertBySession(ctx context.Context, seq *models.Sequence) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.stored = seq
	return nil
}

func (m *mockSequenceStore) GetBySession(ctx context.Context, sessionID string) (*models.Sequence, error) {
	if m.stored == nil {
		return nil, fmt.Errorf("sequence for session %s: %w", sessionID, domain.ErrNotFound)
	}
	return m.stored, nil
}

func (m *mockSequenceStore) ListByUser(ctx context.Context, userID string) ([]models.Sequence, error) {
	return []models.Sequence{}, nil
}

func (m *mockSequenceStore) DeleteBySession(ctx context.Context, sessionID string) error {
	m.deletes = append(m.deletes, sessionID)
	m.stored = nil
	return nil
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}
}

func artifact() *models.Sequence {
	return &models.Sequence{
		ID:        "seq_123",
		SessionID: "sess-1",
		Title:     "Engineer Recruitment for Acme",
		Steps:     []models.Step{{ID: "step_1", Step: 1, Channel: models.ChannelEmail, Message: "hi"}},
	}
}

func TestBroadcast(t *testing.T) {
	t.Run("persists before publishing", func(t *testing.T) {
		transport := &mockTransport{}
		store := &mockSequenceStore{}
		b := NewBroadcaster(transport, store, fastPolicy(), testLogger())

		if !b.Broadcast(context.Background(), "sess-1", artifact()) {
			t.Fatal("expected confirmed broadcast")
		}
		if store.stored == nil || store.stored.ID != "seq_123" {
			t.Fatalf("expected artifact persisted, got %+v", store.stored)
		}
		if len(transport.published) != 1 || transport.published[0].event != EventSequenceUpdate {
			t.Fatalf("expected one sequence_update publish, got %+v", transport.published)
		}
	})

	t.Run("retries until delivery succeeds", func(t *testing.T) {
		transport := &mockTransport{failures: 2}
		store := &mockSequenceStore{}
		b := NewBroadcaster(transport, store, fastPolicy(), testLogger())

		if !b.Broadcast(context.Background(), "sess-1", artifact()) {
			t.Fatal("expected confirmed broadcast after retries")
		}
		if len(transport.published) != 1 {
			t.Fatalf("expected exactly one successful publish, got %d", len(transport.published))
		}
	})

	t.Run("final direct attempt after policy exhausted", func(t *testing.T) {
		// 3 policy attempts fail; the direct attempt succeeds.
		transport := &mockTransport{failures: 3}
		store := &mockSequenceStore{}
		b := NewBroadcaster(transport, store, fastPolicy(), testLogger())

		if !b.Broadcast(context.Background(), "sess-1", artifact()) {
			t.Fatal("expected confirmation from final direct attempt")
		}
	})

	t.Run("unconfirmed when every attempt fails", func(t *testing.T) {
		transport := &mockTransport{failures: 10}
		store := &mockSequenceStore{}
		b := NewBroadcaster(transport, store, fastPolicy(), testLogger())

		if b.Broadcast(context.Background(), "sess-1", artifact()) {
			t.Fatal("expected unconfirmed broadcast")
		}
		// Artifact is still durably stored for late joiners.
		if store.stored == nil {
			t.Fatal("expected artifact persisted despite failed delivery")
		}
	})

	t.Run("nil artifact publishes error and reports unconfirmed", func(t *testing.T) {
		transport := &mockTransport{}
		store := &mockSequenceStore{}
		b := NewBroadcaster(transport, store, fastPolicy(), testLogger())

		if b.Broadcast(context.Background(), "sess-1", nil) {
			t.Fatal("expected unconfirmed broadcast for nil artifact")
		}
		if store.stored != nil {
			t.Fatal("nil artifact must not be persisted")
		}
		if len(transport.published) != 1 || transport.published[0].event != EventError {
			t.Fatalf("expected error event, got %+v", transport.published)
		}
	})

	t.Run("persistence failure stops delivery", func(t *testing.T) {
		transport := &mockTransport{}
		store := &mockSequenceStore{upsertErr: errors.New("db down")}
		b := NewBroadcaster(transport, store, fastPolicy(), testLogger())

		if b.Broadcast(context.Background(), "sess-1", artifact()) {
			t.Fatal("expected unconfirmed broadcast")
		}
		if len(transport.published) != 0 {
			t.Fatalf("nothing should publish when persistence fails, got %+v", transport.published)
		}
	})

	t.Run("repairs structural gaps", func(t *testing.T) {
		transport := &mockTransport{}
		store := &mockSequenceStore{}
		b := NewBroadcaster(transport, store, fastPolicy(), testLogger())

		seq := &models.Sequence{}
		if !b.Broadcast(context.Background(), "sess-1", seq) {
			t.Fatal("expected confirmed broadcast")
		}
		if seq.SessionID != "sess-1" {
			t.Errorf("expected session id filled, got %q", seq.SessionID)
		}
		if seq.ID == "" || seq.Title != "Recruiting Sequence" {
			t.Errorf("expected synthesized id and title, got %+v", seq)
		}
		if seq.Steps == nil {
			t.Error("expected steps list synthesized")
		}
	})
}

func TestClear(t *testing.T) {
	transport := &mockTransport{}
	store := &mockSequenceStore{stored: artifact()}
	b := NewBroadcaster(transport, store, fastPolicy(), testLogger())

	if err := b.Clear(context.Background(), "sess-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.deletes) != 1 || store.deletes[0] != "sess-1" {
		t.Fatalf("expected delete for sess-1, got %v", store.deletes)
	}
	if len(transport.published) != 1 {
		t.Fatalf("expected one publish, got %d", len(transport.published))
	}
	if transport.published[0].event != EventSequenceUpdate || transport.published[0].payload != nil {
		t.Fatalf("expected explicit null sequence_update, got %+v", transport.published[0])
	}
}
