package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"cadence/internal/domain"
	"cadence/internal/domain/models"
	"cadence/internal/domain/repositories"
	"cadence/internal/tools"
)

// MessageDispatcher queues a user message for background processing on
// its session's lane.
type MessageDispatcher interface {
	Dispatch(sessionID, userID, content string) error
}

// Handler upgrades HTTP requests to websocket connections and runs the
// per-connection read loop over client events.
type Handler struct {
	hub           *Hub
	sequences     repositories.SequenceRepository
	dispatcher    MessageDispatcher
	allowedOrigin string
	isDev         bool
	logger        *slog.Logger
}

// NewHandler creates a websocket Handler.
func NewHandler(hub *Hub, sequences repositories.SequenceRepository, dispatcher MessageDispatcher, allowedOrigin string, isDev bool, logger *slog.Logger) *Handler {
	return &Handler{
		hub:           hub,
		sequences:     sequences,
		dispatcher:    dispatcher,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
		logger:        logger,
	}
}

// clientEnvelope is the inbound frame shape. Data stays raw until the
// event name picks a payload type.
type clientEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type joinPayload struct {
	SessionID string `json:"session_id"`
}

type chatPayload struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	UserID    string `json:"user_id"`
}

type editPayload struct {
	SessionID  string           `json:"session_id"`
	SequenceID string           `json:"sequence_id"`
	Changes    *models.Sequence `json:"changes"`
}

// ServeHTTP implements http.Handler for websocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err, "ip", r.RemoteAddr)
		return
	}
	defer func() {
		if closeErr := conn.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			h.logger.Debug("websocket close failed", "error", closeErr)
		}
	}()

	sub := NewSubscriber(conn)
	if err := sub.Send(EventConnectionStatus, map[string]string{"status": "connected"}); err != nil {
		h.logger.Debug("connection status not delivered", "error", err)
		return
	}

	// Rooms joined by this connection, for cleanup on disconnect.
	joined := make(map[string]struct{})
	defer func() {
		for sessionID := range joined {
			h.hub.Unsubscribe(sessionID, sub)
		}
	}()

	h.readLoop(r.Context(), conn, sub, joined)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	h.logger.Warn("websocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, sub *Subscriber, joined map[string]struct{}) {
	for {
		_, raw, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				h.logger.Debug("websocket closed by client")
			} else {
				h.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		var env clientEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			h.sendError(sub, "Invalid message format")
			continue
		}

		switch env.Event {
		case "join":
			h.handleJoin(ctx, sub, env.Data, joined)
		case "leave":
			h.handleLeave(sub, env.Data, joined)
		case EventChatMessage:
			h.handleChatMessage(sub, env.Data)
		case "sequence_edit":
			h.handleSequenceEdit(ctx, sub, env.Data)
		default:
			h.logger.Debug("unknown client event", "event", env.Event)
		}
	}
}

// handleJoin subscribes the client to a session room, confirms, then
// replays the session's current artifact. An explicit null is sent when
// no artifact exists so the client starts from a clean state.
func (h *Handler) handleJoin(ctx context.Context, sub *Subscriber, data json.RawMessage, joined map[string]struct{}) {
	var payload joinPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.SessionID == "" {
		h.sendError(sub, "Missing session_id")
		return
	}

	h.hub.Subscribe(payload.SessionID, sub)
	joined[payload.SessionID] = struct{}{}
	h.logger.Info("client joined room", "session_id", payload.SessionID)

	if err := sub.Send(EventRoomJoined, map[string]string{"session_id": payload.SessionID}); err != nil {
		h.logger.Debug("room_joined not delivered", "session_id", payload.SessionID, "error", err)
		return
	}

	seq, err := h.sequences.GetBySession(ctx, payload.SessionID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			h.logger.Error("artifact replay lookup failed", "session_id", payload.SessionID, "error", err)
		}
		// Null on missing or failed lookup, never a stale artifact.
		if err := sub.Send(EventSequenceUpdate, nil); err != nil {
			h.logger.Debug("null sequence_update not delivered", "session_id", payload.SessionID, "error", err)
		}
		return
	}

	if err := sub.Send(EventSequenceUpdate, seq); err != nil {
		h.logger.Debug("sequence replay not delivered", "session_id", payload.SessionID, "error", err)
	}
}

func (h *Handler) handleLeave(sub *Subscriber, data json.RawMessage, joined map[string]struct{}) {
	var payload joinPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.SessionID == "" {
		h.sendError(sub, "Missing session_id")
		return
	}

	h.hub.Unsubscribe(payload.SessionID, sub)
	delete(joined, payload.SessionID)
	h.logger.Info("client left room", "session_id", payload.SessionID)
}

// handleChatMessage acknowledges receipt immediately and hands the
// message to the dispatcher; processing happens on the session's lane.
func (h *Handler) handleChatMessage(sub *Subscriber, data json.RawMessage) {
	var payload chatPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.SessionID == "" || payload.Message == "" {
		h.sendError(sub, "Invalid message data")
		return
	}

	if err := sub.Send(EventMessageReceived, map[string]string{
		"status":  "received",
		"message": payload.Message,
	}); err != nil {
		h.logger.Debug("message_received not delivered", "session_id", payload.SessionID, "error", err)
	}

	if err := h.dispatcher.Dispatch(payload.SessionID, payload.UserID, payload.Message); err != nil {
		h.logger.Error("message dispatch failed", "session_id", payload.SessionID, "error", err)
		h.sendError(sub, "Server busy, please retry")
	}
}

// handleSequenceEdit applies a client-side artifact edit: the edited
// sequence replaces the stored one, keeping the stored artifact id, and
// the repaired result is persisted and fanned out to the whole room.
func (h *Handler) handleSequenceEdit(ctx context.Context, sub *Subscriber, data json.RawMessage) {
	var payload editPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.SessionID == "" || payload.Changes == nil {
		h.sendError(sub, "Invalid sequence edit data")
		return
	}
	if len(payload.Changes.Steps) == 0 {
		h.sendError(sub, "Invalid sequence format. Required: steps array")
		return
	}

	seq := payload.Changes
	seq.SessionID = payload.SessionID
	if existing, err := h.sequences.GetBySession(ctx, payload.SessionID); err == nil {
		seq.ID = existing.ID
		if seq.UserID == "" {
			seq.UserID = existing.UserID
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		h.logger.Error("sequence edit lookup failed", "session_id", payload.SessionID, "error", err)
		h.sendError(sub, "Error updating sequence")
		return
	}
	tools.RepairSteps(seq, "", h.logger)

	if err := h.sequences.UpsertBySession(ctx, seq); err != nil {
		h.logger.Error("sequence edit persistence failed", "session_id", payload.SessionID, "error", err)
		h.sendError(sub, "Error updating sequence")
		return
	}

	if err := sub.Send(EventEditReceived, map[string]string{
		"status":      "received",
		"sequence_id": seq.ID,
	}); err != nil {
		h.logger.Debug("edit_received not delivered", "session_id", payload.SessionID, "error", err)
	}

	if err := h.hub.Publish(payload.SessionID, EventSequenceUpdate, seq); err != nil {
		h.logger.Warn("edited sequence not delivered", "session_id", payload.SessionID, "error", err)
	}
}

func (h *Handler) sendError(sub *Subscriber, message string) {
	if err := sub.Send(EventError, map[string]string{"message": message}); err != nil {
		h.logger.Debug("error event not delivered", "error", err)
	}
}
