package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"cadence/internal/domain"
	"cadence/internal/domain/models"
	"cadence/internal/domain/repositories"
	"cadence/internal/domain/services"
)

const maxSessionNameLength = 255

type sessionService struct {
	sessionRepo  repositories.SessionRepository
	sequenceRepo repositories.SequenceRepository
	txManager    repositories.TransactionManager
	logger       *slog.Logger
}

// NewSessionService creates a new session service
func NewSessionService(
	sessionRepo repositories.SessionRepository,
	sequenceRepo repositories.SequenceRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) services.SessionService {
	return &sessionService{
		sessionRepo:  sessionRepo,
		sequenceRepo: sequenceRepo,
		txManager:    txManager,
		logger:       logger,
	}
}

// CreateSession creates a new session. A missing id is generated, a
// missing name gets the timestamped placeholder the auto-renamer later
// recognizes, and a missing user falls back to the default user.
func (s *sessionService) CreateSession(ctx context.Context, req *services.CreateSessionRequest) (*models.Session, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	session := &models.Session{
		ID:     req.ID,
		Name:   req.Name,
		UserID: req.UserID,
	}
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.Name == "" {
		session.Name = models.DefaultSessionNamePrefix + time.Now().Format("2006-01-02 15:04")
	}
	if session.UserID == "" {
		session.UserID = models.DefaultUserID
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("session created",
		"id", session.ID,
		"name", session.Name,
		"user_id", session.UserID,
	)

	return session, nil
}

// GetSession retrieves a session with its sequence artifacts
func (s *sessionService) GetSession(ctx context.Context, id string) (*services.SessionDetail, error) {
	session, err := s.sessionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &services.SessionDetail{
		Session:   *session,
		Sequences: []models.Sequence{},
	}

	seq, err := s.sequenceRepo.GetBySession(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("sequence lookup failed", "session_id", id, "error", err)
		}
		return detail, nil
	}
	detail.Sequences = append(detail.Sequences, *seq)

	return detail, nil
}

// ListSessions lists a user's sessions, newest activity first
func (s *sessionService) ListSessions(ctx context.Context, userID string) ([]models.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}
	return s.sessionRepo.ListByUser(ctx, userID)
}

// RenameSession sets a user-chosen name. A rename that lands after the
// auto-renamer keeps the later write; user intent wins either way.
func (s *sessionService) RenameSession(ctx context.Context, id, name string) (*models.Session, error) {
	if err := validation.Validate(name, validation.Required, validation.Length(1, maxSessionNameLength)); err != nil {
		return nil, fmt.Errorf("%w: name %v", domain.ErrValidation, err)
	}

	if err := s.sessionRepo.Rename(ctx, id, name); err != nil {
		return nil, err
	}

	s.logger.Info("session renamed", "id", id, "name", name)
	return s.sessionRepo.Get(ctx, id)
}

// DeleteSession deletes a session with its turns and sequence. The
// sequence delete and the session delete (which cascades to turns) run
// in one transaction so a failure leaves everything in place.
func (s *sessionService) DeleteSession(ctx context.Context, id string) error {
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.sequenceRepo.DeleteBySession(txCtx, id); err != nil {
			return err
		}
		return s.sessionRepo.Delete(txCtx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("session deleted", "id", id)
	return nil
}

// validateCreateRequest validates a session creation request
func (s *sessionService) validateCreateRequest(req *services.CreateSessionRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Length(0, maxSessionNameLength)),
	)
}
