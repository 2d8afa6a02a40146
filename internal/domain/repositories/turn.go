package repositories

import (
	"context"

	"cadence/internal/domain/models"
)

// TurnRepository persists the append-only conversation history.
type TurnRepository interface {
	// Append inserts a turn and fills in its generated ID and timestamp.
	Append(ctx context.Context, turn *models.Turn) error

	// ListBySession returns a session's turns in insertion order.
	ListBySession(ctx context.Context, sessionID string) ([]models.Turn, error)
}
