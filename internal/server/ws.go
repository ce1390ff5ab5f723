package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func registerWSRoute(mux *http.ServeMux, hub *Hub) {
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("ws upgrade error: %v", err)
			return
		}
		streamEvents(conn, hub)
	})
}

// streamEvents greets the client, then forwards interview progress
// events until the client goes away or falls too far behind.
func streamEvents(conn *websocket.Conn, hub *Hub) {
	defer func() { _ = conn.Close() }()

	hello, err := json.Marshal(ConnectionEvent{
		Event:     newEvent("connected", time.Now().UTC()),
		Connected: true,
	})
	if err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
			return
		}
	}

	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	// Clients send nothing meaningful, but reading is the only way to
	// notice a dropped connection before the next broadcast.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-disconnected:
			return
		}
	}
}
