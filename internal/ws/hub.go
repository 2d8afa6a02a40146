package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const writeTimeout = 5 * time.Second

// Subscriber is one connected client. Writes are serialized per
// connection.
type Subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// NewSubscriber wraps an accepted connection.
func NewSubscriber(conn *websocket.Conn) *Subscriber {
	return &Subscriber{conn: conn}
}

// Send writes one event frame to the client.
func (s *Subscriber) Send(event string, payload any) error {
	raw, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Write(ctx, websocket.MessageText, raw)
}

// Hub is the in-process pub/sub transport. Each session id is a room;
// the room registry is the one piece of shared mutable state and is
// only touched under the lock.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Subscriber]struct{}
	logger *slog.Logger
}

// NewHub creates a Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Subscriber]struct{}),
		logger: logger,
	}
}

// Subscribe adds a client to a session's room.
func (h *Hub) Subscribe(sessionID string, sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[sessionID]
	if !ok {
		room = make(map[*Subscriber]struct{})
		h.rooms[sessionID] = room
	}
	room[sub] = struct{}{}
}

// Unsubscribe removes a client from a session's room, dropping the room
// when it empties.
func (h *Hub) Unsubscribe(sessionID string, sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[sessionID]
	if !ok {
		return
	}
	delete(room, sub)
	if len(room) == 0 {
		delete(h.rooms, sessionID)
	}
}

// SubscriberCount returns the current size of a session's room.
func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

// Publish sends one event to every subscriber of a session. An empty
// room is not a failure; a non-empty room where every write fails is.
func (h *Hub) Publish(sessionID, event string, payload any) error {
	h.mu.RLock()
	subscribers := make([]*Subscriber, 0, len(h.rooms[sessionID]))
	for sub := range h.rooms[sessionID] {
		subscribers = append(subscribers, sub)
	}
	h.mu.RUnlock()

	if len(subscribers) == 0 {
		return nil
	}

	delivered := 0
	for _, sub := range subscribers {
		if err := sub.Send(event, payload); err != nil {
			h.logger.Debug("event delivery failed", "event", event, "session_id", sessionID, "error", err)
			continue
		}
		delivered++
	}

	if delivered == 0 {
		return fmt.Errorf("publish %s to session %s: no subscriber reachable", event, sessionID)
	}
	return nil
}

// ChatMessage implements the agent event sink.
func (h *Hub) ChatMessage(sessionID, role, content string) {
	h.publishEvent(sessionID, EventChatMessage, map[string]string{
		"role":    role,
		"content": content,
	})
}

// ToolCallStart implements the agent event sink.
func (h *Hub) ToolCallStart(sessionID, tool string) {
	h.publishEvent(sessionID, EventToolCallStart, map[string]string{"tool": tool})
}

// ToolCallEnd implements the agent event sink.
func (h *Hub) ToolCallEnd(sessionID, tool string) {
	h.publishEvent(sessionID, EventToolCallEnd, map[string]string{
		"tool":   tool,
		"status": "success",
	})
}

// ToolCallError implements the agent event sink.
func (h *Hub) ToolCallError(sessionID, tool, message string) {
	h.publishEvent(sessionID, EventToolCallError, map[string]string{
		"tool":  tool,
		"error": message,
	})
}

func (h *Hub) publishEvent(sessionID, event string, payload any) {
	if err := h.Publish(sessionID, event, payload); err != nil {
		h.logger.Warn("event not delivered", "event", event, "session_id", sessionID, "error", err)
	}
}
