// Package ws pushes notification events to connected websocket
// clients. Each /ws upgrade becomes a session tracked by the hub; the
// service subscribes to the event bus and fans frames out to every
// session. Slow or dead clients are dropped, never waited on.
package ws

import (
	"sync"

	"audio-notify-server-go/internal/platform/logging"
)

// Hub tracks the active websocket sessions.
type Hub struct {
	logger   *logging.Logger
	sessions sync.Map // map[string]*Session
}

// NewHub builds a fresh session hub.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{logger: logger}
}

// Register adds a session to the hub.
func (h *Hub) Register(session *Session) {
	if session == nil {
		return
	}
	h.sessions.Store(session.ID(), session)
}

// Unregister removes the session from the hub.
func (h *Hub) Unregister(id string) {
	if id == "" {
		return
	}
	h.sessions.Delete(id)
}

// Broadcast sends the frame to every session. Sessions whose write
// fails are closed and removed.
func (h *Hub) Broadcast(data []byte) {
	h.sessions.Range(func(key, value any) bool {
		session, ok := value.(*Session)
		if !ok {
			return true
		}
		if err := session.Send(data); err != nil {
			h.logger.DebugTag("WS", "dropping session %s: %v", session.ID(), err)
			session.Close()
			h.sessions.Delete(key)
		}
		return true
	})
}

// CloseAll terminates all active sessions.
func (h *Hub) CloseAll() {
	h.sessions.Range(func(key, value any) bool {
		if session, ok := value.(*Session); ok {
			session.Close()
		}
		h.sessions.Delete(key)
		return true
	})
}

// Count reports the number of active sessions.
func (h *Hub) Count() int {
	count := 0
	h.sessions.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}
