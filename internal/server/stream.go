package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/claude/repcoach/internal/session"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeWait is how long to wait for a write to complete
	writeWait = 10 * time.Second

	// pongWait is how long to wait for the next frame or pong
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds one landmark frame
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleStream upgrades to a websocket on which the client sends one
// frameRequest per message and receives one snapshot per frame, in order.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if _, err := s.sessions.Get(id); err != nil {
		s.writeSessionError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "session", id, "error", err)
		return
	}
	s.log.Info("stream opened", "session", id)

	out := make(chan any, 64)
	go s.streamWriter(conn, out)
	s.streamReader(conn, id, out)
	s.log.Info("stream closed", "session", id)
}

// streamReader processes frames until the client disconnects or the session
// ends. It owns out and closes it on return.
func (s *Server) streamReader(conn *websocket.Conn, id uuid.UUID, out chan<- any) {
	defer close(out)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("stream read", "session", id, "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var req frameRequest
		if err := json.Unmarshal(data, &req); err != nil {
			out <- map[string]string{"error": "invalid JSON: " + err.Error()}
			continue
		}
		snap, err := s.sessions.Process(id, req.frame())
		if errors.Is(err, session.ErrNotFound) {
			out <- map[string]string{"error": err.Error()}
			return
		}
		out <- snap
	}
}

// streamWriter is the only goroutine writing to conn.
func (s *Server) streamWriter(conn *websocket.Conn, out <-chan any) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-out:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				drain(conn, out)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				drain(conn, out)
				return
			}
		}
	}
}

// drain closes a failed connection, which unblocks the reader, and discards
// whatever the reader still sends until it closes out.
func drain(conn *websocket.Conn, out <-chan any) {
	conn.Close()
	for range out {
	}
}
