package session

import (
	"sort"
	"sync"
	"time"
)

// Default registry settings.
const (
	defaultSendBuffer   = 256
	defaultWriteTimeout = 10 * time.Second
	defaultPingInterval = 30 * time.Second
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds per-session transport settings.
type Config struct {
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.SendBuffer <= 0 {
		c.SendBuffer = defaultSendBuffer
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = defaultPingInterval
	}
	return c
}

// Registry tracks active sessions. All public methods are thread-safe.
// There is no connection limit; every accepted connection is tracked.
type Registry struct {
	cfg      Config
	sessions map[string]*Session
	mu       sync.RWMutex
	logger   Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:      cfg.withDefaults(),
		sessions: make(map[string]*Session),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Register tracks a new connection and starts its write pump.
// The session is authenticated immediately.
func (r *Registry) Register(conn Conn) *Session {
	s := &Session{
		id:            conn.RemoteAddr().String(),
		conn:          conn,
		send:          make(chan []byte, r.cfg.SendBuffer),
		authenticated: true,
		connectedAt:   time.Now().UTC(),
	}

	r.mu.Lock()
	if old, exists := r.sessions[s.id]; exists {
		// Same peer address reconnected before the old close was observed.
		old.close()
	}
	r.sessions[s.id] = s
	r.mu.Unlock()

	go s.writePump(r.cfg)

	r.logger.Info("hub session registered", "session_id", s.id, "sessions", r.Count())
	return s
}

// Lookup returns the session with the given id.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Unregister removes a session and stops its write pump.
// Only the registered instance is removed, so a stale session cannot evict
// a newer one with the same id.
func (r *Registry) Unregister(s *Session) {
	r.mu.Lock()
	current, exists := r.sessions[s.id]
	if exists && current == s {
		delete(r.sessions, s.id)
	}
	r.mu.Unlock()

	if s.close() {
		r.logger.Info("hub session unregistered", "session_id", s.id, "sessions", r.Count())
	}
}

// SendTo queues a frame for one session.
func (r *Registry) SendTo(id string, frame []byte) error {
	s, ok := r.Lookup(id)
	if !ok {
		r.logger.Warn("cannot send to session: not connected", "session_id", id)
		return ErrSessionNotFound
	}
	if err := s.enqueue(frame); err != nil {
		r.logger.Warn("cannot send to session", "session_id", id, "error", err)
		return err
	}
	return nil
}

// Broadcast queues a frame for every session and returns the number of
// sessions it was queued for.
func (r *Registry) Broadcast(frame []byte) int {
	// Snapshot under the lock, then release before sending.
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	sent := 0
	for _, s := range sessions {
		if err := s.enqueue(frame); err != nil {
			r.logger.Debug("broadcast skipped session", "session_id", s.id, "error", err)
			continue
		}
		sent++
	}
	return sent
}

// Count returns the number of sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// IDs returns the ids of all sessions, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// CloseAll disconnects every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}
