package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"cadence/internal/domain"
	"cadence/internal/domain/models"
	"cadence/internal/domain/repositories"
	"cadence/internal/httputil"
)

// SequenceClearer removes a session's artifact and notifies subscribers
// with an explicit null. Implemented by the ws broadcaster.
type SequenceClearer interface {
	Clear(ctx context.Context, sessionID string) error
}

// SequenceHandler handles sequence HTTP requests
type SequenceHandler struct {
	sequences repositories.SequenceRepository
	clearer   SequenceClearer
	logger    *slog.Logger
}

// NewSequenceHandler creates a new sequence handler
func NewSequenceHandler(sequences repositories.SequenceRepository, clearer SequenceClearer, logger *slog.Logger) *SequenceHandler {
	return &SequenceHandler{
		sequences: sequences,
		clearer:   clearer,
		logger:    logger,
	}
}

// ListSequences lists sequences by session or by user
// GET /api/sequences?session_id=|user_id=
func (h *SequenceHandler) ListSequences(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	userID := r.URL.Query().Get("user_id")

	switch {
	case sessionID != "":
		seq, err := h.sequences.GetBySession(r.Context(), sessionID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				httputil.RespondJSON(w, http.StatusOK, []models.Sequence{})
				return
			}
			handleError(w, err)
			return
		}
		httputil.RespondJSON(w, http.StatusOK, []models.Sequence{*seq})
	case userID != "":
		sequences, err := h.sequences.ListByUser(r.Context(), userID)
		if err != nil {
			handleError(w, err)
			return
		}
		httputil.RespondJSON(w, http.StatusOK, sequences)
	default:
		httputil.RespondError(w, http.StatusBadRequest, "session_id or user_id is required")
	}
}

// GetSequence retrieves a session's current sequence
// GET /api/sequences/{session_id}
func (h *SequenceHandler) GetSequence(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	if sessionID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	seq, err := h.sequences.GetBySession(r.Context(), sessionID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, seq)
}

type resetSequenceRequest struct {
	SessionID string `json:"session_id"`
}

// ResetSequence clears a session's sequence and pushes a null update
// POST /api/sequences/reset
func (h *SequenceHandler) ResetSequence(w http.ResponseWriter, r *http.Request) {
	var req resetSequenceRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SessionID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	if err := h.clearer.Clear(r.Context(), req.SessionID); err != nil {
		handleError(w, err)
		return
	}

	h.logger.Info("sequence reset", "session_id", req.SessionID)
	httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"message": "Sequence reset successfully",
	})
}
