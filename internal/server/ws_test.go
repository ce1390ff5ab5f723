package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func subscriberCount(h *Hub) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func waitForSubscriber(t *testing.T, hub *Hub) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for subscriberCount(hub) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never subscribed to the hub")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWSStreamsEvents(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(Handler(Options{
		Orchestrator: &orchestratorStub{},
		Auth:         NewTokenAuth(nil),
		Hub:          hub,
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read hello: %v", err)
	}
	var hello ConnectionEvent
	if err := json.Unmarshal(msg, &hello); err != nil {
		t.Fatalf("unmarshal hello: %v", err)
	}
	if hello.Type != "connected" || !hello.Connected {
		t.Fatalf("unexpected hello %s", msg)
	}

	waitForSubscriber(t, hub)
	hub.BroadcastQuestionAsked("sess-1", 2, 5)

	_, msg, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var event QuestionAskedEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if event.Type != "question_asked" || event.SessionID != "sess-1" || event.CurrentNumber != 2 {
		t.Fatalf("unexpected event %s", msg)
	}
}

func TestWSClientDisconnectUnsubscribes(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(Handler(Options{
		Orchestrator: &orchestratorStub{},
		Auth:         NewTokenAuth(nil),
		Hub:          hub,
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	waitForSubscriber(t, hub)
	_ = conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for subscriberCount(hub) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription not released after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
