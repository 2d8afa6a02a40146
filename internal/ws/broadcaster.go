package ws

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cadence/internal/domain/models"
	"cadence/internal/domain/repositories"
)

// Transport is the publish side of the hub the broadcaster pushes
// through. Narrowed for testability.
type Transport interface {
	Publish(sessionID, event string, payload any) error
}

// RetryPolicy bounds how often a failed publish is retried before the
// final best-effort attempt.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy returns the standard delivery policy: 3 attempts
// with a 500ms fixed delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Delay:       500 * time.Millisecond,
	}
}

// Broadcaster implements persist-then-publish delivery of sequence
// artifacts. The artifact is durably upserted before any publish
// attempt, so delivery failure degrades to "persisted but not live"
// rather than data loss; late joiners recover it by query.
type Broadcaster struct {
	transport Transport
	sequences repositories.SequenceRepository
	policy    RetryPolicy
	logger    *slog.Logger
}

// NewBroadcaster creates a Broadcaster.
func NewBroadcaster(transport Transport, sequences repositories.SequenceRepository, policy RetryPolicy, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		transport: transport,
		sequences: sequences,
		policy:    policy,
		logger:    logger,
	}
}

// Broadcast repairs, persists and publishes an artifact. It reports
// true once the artifact is persisted and any publish attempt succeeds;
// a session with no subscribers counts as success.
func (b *Broadcaster) Broadcast(ctx context.Context, sessionID string, seq *models.Sequence) bool {
	if seq == nil {
		b.logger.Error("refusing to broadcast nil artifact", "session_id", sessionID)
		b.publishError(sessionID, "Generated sequence has invalid format")
		return false
	}

	repairArtifact(seq, sessionID, b.logger)

	if err := b.sequences.UpsertBySession(ctx, seq); err != nil {
		b.logger.Error("artifact persistence failed", "session_id", sessionID, "error", err)
		return false
	}

	for attempt := 1; attempt <= b.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if !sleepCtx(ctx, b.policy.Delay) {
				return false
			}
		}

		err := b.transport.Publish(sessionID, EventSequenceUpdate, seq)
		if err == nil {
			b.logger.Info("sequence update delivered",
				"session_id", sessionID, "sequence_id", seq.ID, "attempt", attempt)
			return true
		}
		b.logger.Warn("sequence update delivery failed",
			"session_id", sessionID, "attempt", attempt, "max_attempts", b.policy.MaxAttempts, "error", err)
	}

	// Last direct best-effort attempt outside the policy.
	if err := b.transport.Publish(sessionID, EventSequenceUpdate, seq); err != nil {
		b.logger.Error("all sequence update delivery attempts failed",
			"session_id", sessionID, "sequence_id", seq.ID)
		return false
	}
	b.logger.Info("sequence update delivered on final direct attempt",
		"session_id", sessionID, "sequence_id", seq.ID)
	return true
}

// Clear removes a session's artifact and pushes an explicit null so
// subscribers are never left holding stale data.
func (b *Broadcaster) Clear(ctx context.Context, sessionID string) error {
	if err := b.sequences.DeleteBySession(ctx, sessionID); err != nil {
		return err
	}
	if err := b.transport.Publish(sessionID, EventSequenceUpdate, nil); err != nil {
		b.logger.Warn("clear signal not delivered", "session_id", sessionID, "error", err)
	}
	return nil
}

func (b *Broadcaster) publishError(sessionID, message string) {
	if err := b.transport.Publish(sessionID, EventError, map[string]string{"message": message}); err != nil {
		b.logger.Debug("error event not delivered", "session_id", sessionID, "error", err)
	}
}

// repairArtifact fills structural gaps instead of rejecting: missing
// id or title are synthesized, a missing steps list becomes empty.
func repairArtifact(seq *models.Sequence, sessionID string, logger *slog.Logger) {
	if seq.SessionID == "" {
		seq.SessionID = sessionID
	}
	if seq.ID == "" {
		seq.ID = fmt.Sprintf("seq_%d", time.Now().Unix())
		logger.Warn("artifact missing id, synthesized", "sequence_id", seq.ID)
	}
	if seq.Title == "" {
		seq.Title = "Recruiting Sequence"
		logger.Warn("artifact missing title, synthesized", "sequence_id", seq.ID)
	}
	if seq.Steps == nil {
		seq.Steps = []models.Step{}
		logger.Warn("artifact missing steps list, synthesized empty list", "sequence_id", seq.ID)
	}
}

// sleepCtx waits for d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
