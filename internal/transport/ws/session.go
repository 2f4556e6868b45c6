package ws

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

// Session wraps one subscriber connection. Writes are serialized; the
// read loop only consumes control frames to notice disconnects.
type Session struct {
	id     string
	socket *websocket.Conn
	mu     sync.Mutex
	closed atomic.Bool
}

// NewSession wraps an upgraded websocket connection.
func NewSession(id string, socket *websocket.Conn) *Session {
	return &Session{id: id, socket: socket}
}

// ID exposes the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Send writes one text frame, bounded by the write timeout.
func (s *Session) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return fmt.Errorf("session %s already closed", s.id)
	}
	s.socket.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.socket.WriteMessage(websocket.TextMessage, data)
}

// Close terminates the underlying connection. Safe to call twice.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.socket.Close()
}

// ReadUntilClosed discards inbound frames until the peer goes away.
// It returns when the connection errors, which is how disconnects are
// detected for unregistration.
func (s *Session) ReadUntilClosed() {
	for {
		if _, _, err := s.socket.ReadMessage(); err != nil {
			return
		}
	}
}
