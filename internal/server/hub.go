package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Hub fans session progress events out to connected websocket clients.
// A slow client drops messages rather than blocking the orchestrator.
type Hub struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan []byte]struct{})}
}

func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (h *Hub) BroadcastSessionStarted(sessionID string) {
	h.broadcastEvent(SessionStartedEvent{
		Event:     newEvent("session_started", time.Now().UTC()),
		SessionID: sessionID,
	})
}

func (h *Hub) BroadcastQuestionAsked(sessionID string, number, total int) {
	h.broadcastEvent(QuestionAskedEvent{
		Event:          newEvent("question_asked", time.Now().UTC()),
		SessionID:      sessionID,
		CurrentNumber:  number,
		TotalQuestions: total,
	})
}

func (h *Hub) BroadcastAnswerReceived(sessionID string, text string) {
	h.broadcastEvent(AnswerReceivedEvent{
		Event:     newEvent("answer_received", time.Now().UTC()),
		SessionID: sessionID,
		Text:      text,
	})
}

func (h *Hub) BroadcastSessionEnded(sessionID string) {
	h.broadcastEvent(SessionEndedEvent{
		Event:     newEvent("session_ended", time.Now().UTC()),
		SessionID: sessionID,
	})
}

func (h *Hub) broadcastEvent(event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("event marshal error: %v", err)
		return
	}
	h.Broadcast(payload)
}
