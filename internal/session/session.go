package session

import (
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn used by a session.
type Conn interface {
	RemoteAddr() net.Addr
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Session is one hub connection.
type Session struct {
	id            string
	conn          Conn
	send          chan []byte
	authenticated bool
	connectedAt   time.Time

	mu     sync.Mutex
	closed bool
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Authenticated reports whether the session passed authentication.
func (s *Session) Authenticated() bool { return s.authenticated }

// ConnectedAt returns when the session was registered.
func (s *Session) ConnectedAt() time.Time { return s.connectedAt }

// enqueue queues a frame for the write pump.
func (s *Session) enqueue(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	select {
	case s.send <- frame:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// close closes the send queue so the write pump exits. Safe to call twice.
func (s *Session) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	close(s.send)
	return true
}

// writePump writes queued frames to the connection and keeps it alive
// with protocol-level pings.
func (s *Session) writePump(cfg Config) {
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			if !ok {
				//nolint:errcheck // Best-effort close message
				s.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			s.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			s.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
