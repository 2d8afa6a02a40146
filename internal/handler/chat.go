package handler

import (
	"context"
	"log/slog"
	"net/http"

	"cadence/internal/domain/repositories"
	"cadence/internal/httputil"
)

// MessageProcessor runs one user message through the orchestration loop
// and returns the final reply. Implemented by the agent dispatcher so
// HTTP submissions share the per-session lanes with websocket ones.
type MessageProcessor interface {
	Process(ctx context.Context, sessionID, userID, content string) (string, error)
}

// ChatHandler handles chat HTTP requests
type ChatHandler struct {
	processor MessageProcessor
	turns     repositories.TurnRepository
	logger    *slog.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(processor MessageProcessor, turns repositories.TurnRepository, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		processor: processor,
		turns:     turns,
		logger:    logger,
	}
}

type sendMessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	UserID    string `json:"user_id"`
}

// SendMessage processes a user message synchronously
// POST /api/chat
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SessionID == "" || req.Message == "" {
		httputil.RespondError(w, http.StatusBadRequest, "session_id and message are required")
		return
	}

	reply, err := h.processor.Process(r.Context(), req.SessionID, req.UserID, req.Message)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"session_id": req.SessionID,
		"response":   reply,
	})
}

// GetHistory returns a session's full conversation in insertion order
// GET /api/chat/{session_id}
func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	if sessionID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	turns, err := h.turns.ListBySession(r.Context(), sessionID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"messages":   turns,
	})
}
