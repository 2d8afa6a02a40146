package repositories

import (
	"context"

	"cadence/internal/domain/models"
)

// SessionRepository persists conversation sessions.
type SessionRepository interface {
	// Create inserts a session. The caller supplies the ID.
	Create(ctx context.Context, session *models.Session) error

	// Get retrieves a session by ID.
	Get(ctx context.Context, sessionID string) (*models.Session, error)

	// ListByUser returns a user's sessions, most recently updated first.
	ListByUser(ctx context.Context, userID string) ([]models.Session, error)

	// Rename sets a session's name.
	Rename(ctx context.Context, sessionID, name string) error

	// Delete removes a session along with its turns and sequence.
	Delete(ctx context.Context, sessionID string) error
}
