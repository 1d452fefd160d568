package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/hubdriver-core/internal/protocol"
	"github.com/nerrad567/hubdriver-core/internal/session"
)

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Hubs are not browsers; there is no origin to check.
		return true
	},
}

// handleWebSocket upgrades the connection, registers the session and
// answers with the authentication response before reading any frame.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	sess := s.sessions.Register(conn)
	s.respond(sess.ID(), 0, protocol.RespAuthentication, protocol.StatusOK, nil)
	s.emit(s.ctx, Signal{Kind: SignalSessionOpened, SessionID: sess.ID()})

	go s.readPump(conn, sess)
}

// readPump reads frames from one session and dispatches them in order.
func (s *Server) readPump(conn *websocket.Conn, sess *session.Session) {
	defer func() {
		s.sessions.Unregister(sess)
		conn.Close()
		s.emit(s.ctx, Signal{Kind: SignalSessionClosed, SessionID: sess.ID()})
	}()

	conn.SetReadLimit(int64(s.wsCfg.MaxMessageSize))
	pingInterval := time.Duration(s.wsCfg.PingInterval) * time.Second
	pongWait := time.Duration(s.wsCfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", "session_id", sess.ID(), "error", err)
			} else {
				s.logger.Debug("websocket closed", "session_id", sess.ID(), "error", err)
			}
			return
		}
		// Any frame proves the peer is alive.
		//nolint:errcheck // Best-effort deadline reset
		conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		s.handleFrame(sess.ID(), data)
	}
}
