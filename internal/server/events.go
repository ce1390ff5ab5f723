package server

import "time"

const EventVersion = 1

type Event struct {
	Type      string `json:"type"`
	Version   int    `json:"version"`
	Timestamp string `json:"timestamp"`
}

type SessionStartedEvent struct {
	Event
	SessionID string `json:"session_id"`
}

type QuestionAskedEvent struct {
	Event
	SessionID      string `json:"session_id"`
	CurrentNumber  int    `json:"current_number"`
	TotalQuestions int    `json:"total_questions"`
}

type AnswerReceivedEvent struct {
	Event
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type SessionEndedEvent struct {
	Event
	SessionID string `json:"session_id"`
}

type ConnectionEvent struct {
	Event
	Connected bool `json:"connected"`
}

func newEvent(eventType string, now time.Time) Event {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return Event{
		Type:      eventType,
		Version:   EventVersion,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}
