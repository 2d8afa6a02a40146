package repositories

import (
	"context"

	"cadence/internal/domain/models"
)

// SequenceRepository persists the single current sequence per session.
type SequenceRepository interface {
	// UpsertBySession writes the sequence for its session, replacing any
	// existing one. Republishing the same artifact is safe.
	UpsertBySession(ctx context.Context, seq *models.Sequence) error

	// GetBySession retrieves the current sequence for a session.
	GetBySession(ctx context.Context, sessionID string) (*models.Sequence, error)

	// ListByUser returns all current sequences owned by a user.
	ListByUser(ctx context.Context, userID string) ([]models.Sequence, error)

	// DeleteBySession clears a session's sequence. Deleting a session
	// with no sequence is not an error.
	DeleteBySession(ctx context.Context, sessionID string) error
}
