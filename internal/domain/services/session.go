package services

import (
	"context"

	"cadence/internal/domain/models"
)

// SessionService handles chat session lifecycle logic
type SessionService interface {
	// CreateSession creates a new session, generating an id and a
	// placeholder name when the request omits them
	CreateSession(ctx context.Context, req *CreateSessionRequest) (*models.Session, error)

	// GetSession retrieves a session with its sequence artifacts
	GetSession(ctx context.Context, id string) (*SessionDetail, error)

	// ListSessions lists a user's sessions, newest activity first
	ListSessions(ctx context.Context, userID string) ([]models.Session, error)

	// RenameSession sets a user-chosen name
	RenameSession(ctx context.Context, id, name string) (*models.Session, error)

	// DeleteSession deletes a session and everything attached to it
	DeleteSession(ctx context.Context, id string) error
}

// CreateSessionRequest represents a session creation request
type CreateSessionRequest struct {
	ID     string `json:"session_id,omitempty"` // generated when empty
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
}

// SessionDetail is a session together with its sequence artifacts
type SessionDetail struct {
	models.Session
	Sequences []models.Sequence `json:"sequences"`
}
