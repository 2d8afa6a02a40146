package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
)

// connPair dials a test server and returns both ends of one websocket
// connection.
func connPair(t *testing.T) (server *websocket.Conn, client *websocket.Conn) {
	t.Helper()

	accepted := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept failed: %v", err)
			return
		}
		accepted <- conn
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, _, err := websocket.Dial(ctx, strings.Replace(srv.URL, "http", "ws", 1), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { client.Close(websocket.StatusNormalClosure, "") })

	server = <-accepted
	t.Cleanup(func() { server.Close(websocket.StatusNormalClosure, "") })
	return server, client
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, raw, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return env
}

func TestHubPublish(t *testing.T) {
	t.Run("delivers to room subscribers", func(t *testing.T) {
		hub := NewHub(testLogger())
		serverConn, clientConn := connPair(t)
		sub := NewSubscriber(serverConn)

		hub.Subscribe("sess-1", sub)
		if hub.SubscriberCount("sess-1") != 1 {
			t.Fatalf("expected 1 subscriber, got %d", hub.SubscriberCount("sess-1"))
		}

		if err := hub.Publish("sess-1", EventChatMessage, map[string]string{"role": "assistant", "content": "hi"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		env := readEnvelope(t, clientConn)
		if env.Event != EventChatMessage {
			t.Errorf("expected chat_message, got %q", env.Event)
		}
		data, ok := env.Data.(map[string]any)
		if !ok || data["content"] != "hi" {
			t.Errorf("unexpected payload: %+v", env.Data)
		}
	})

	t.Run("empty room is not a failure", func(t *testing.T) {
		hub := NewHub(testLogger())
		if err := hub.Publish("nobody-home", EventSequenceUpdate, nil); err != nil {
			t.Fatalf("expected nil error for empty room, got %v", err)
		}
	})

	t.Run("unsubscribe stops delivery", func(t *testing.T) {
		hub := NewHub(testLogger())
		serverConn, _ := connPair(t)
		sub := NewSubscriber(serverConn)

		hub.Subscribe("sess-1", sub)
		hub.Unsubscribe("sess-1", sub)
		if hub.SubscriberCount("sess-1") != 0 {
			t.Fatalf("expected empty room, got %d", hub.SubscriberCount("sess-1"))
		}
	})

	t.Run("closed connection surfaces as publish error", func(t *testing.T) {
		hub := NewHub(testLogger())
		serverConn, clientConn := connPair(t)
		sub := NewSubscriber(serverConn)
		hub.Subscribe("sess-1", sub)

		clientConn.Close(websocket.StatusNormalClosure, "")
		serverConn.Close(websocket.StatusNormalClosure, "")

		if err := hub.Publish("sess-1", EventChatMessage, map[string]string{"content": "hi"}); err == nil {
			t.Fatal("expected error when the only subscriber is unreachable")
		}
	})
}
