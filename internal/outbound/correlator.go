package outbound

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/hubdriver-core/internal/protocol"
)

// DefaultTimeout is the time a request waits for its response.
const DefaultTimeout = 5 * time.Second

// Sender writes a frame to one session.
type Sender interface {
	SendTo(sessionID string, frame []byte) error
}

// Logger defines the logging interface used by the Correlator.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// result is delivered to a waiting Send.
type result struct {
	payload json.RawMessage
	err     error
}

// pending is one in-flight request.
type pending struct {
	msg  string
	done chan result // buffered, receives exactly one result
}

// Correlator tracks driver-initiated requests awaiting a response.
// All public methods are thread-safe.
type Correlator struct {
	sender  Sender
	timeout time.Duration
	nextID  atomic.Uint64
	logger  Logger

	mu      sync.Mutex
	pending map[uint64]*pending
	closed  bool

	onTimeout func(msg string)
}

// NewCorrelator creates a correlator that writes requests through sender.
// A non-positive timeout selects DefaultTimeout.
func NewCorrelator(sender Sender, timeout time.Duration) *Correlator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Correlator{
		sender:  sender,
		timeout: timeout,
		logger:  noopLogger{},
		pending: make(map[uint64]*pending),
	}
}

// SetLogger sets the logger for the correlator.
func (c *Correlator) SetLogger(logger Logger) {
	c.logger = logger
}

// SetOnTimeout sets a callback invoked when a request times out.
func (c *Correlator) SetOnTimeout(fn func(msg string)) {
	c.onTimeout = fn
}

// Timeout returns the per-request timeout.
func (c *Correlator) Timeout() time.Duration { return c.timeout }

// Send writes a request to the session and waits for the response payload.
//
// A response with a code outside the success range yields *StatusError.
// No response within the timeout yields ErrTimeout; the pending entry is
// discarded and a late response is ignored.
func (c *Correlator) Send(ctx context.Context, sessionID, msg string, payload any) (json.RawMessage, error) {
	id := c.nextID.Add(1)

	frame, err := protocol.NewRequest(id, msg, payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", msg, err)
	}

	p := &pending{msg: msg, done: make(chan result, 1)}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[id] = p
	c.mu.Unlock()

	if err := c.sender.SendTo(sessionID, frame); err != nil {
		c.discard(id)
		return nil, fmt.Errorf("sending %s request: %w", msg, err)
	}
	c.logger.Debug("outbound request sent", "id", id, "msg", msg, "session_id", sessionID)

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case res := <-p.done:
		return res.payload, res.err
	case <-timer.C:
		if c.discard(id) {
			c.logger.Warn("outbound request timed out", "id", id, "msg", msg, "timeout", c.timeout)
			if c.onTimeout != nil {
				c.onTimeout(msg)
			}
			return nil, fmt.Errorf("%w: %s after %v", ErrTimeout, msg, c.timeout)
		}
		// Resolved concurrently with the timer firing.
		res := <-p.done
		return res.payload, res.err
	case <-ctx.Done():
		if c.discard(id) {
			return nil, ctx.Err()
		}
		res := <-p.done
		return res.payload, res.err
	}
}

// Resolve completes the pending request reqID with a response.
// It returns false if no request with that id is pending.
func (c *Correlator) Resolve(reqID uint64, code int, payload json.RawMessage) bool {
	c.mu.Lock()
	p, ok := c.pending[reqID]
	delete(c.pending, reqID)
	c.mu.Unlock()

	if !ok {
		c.logger.Warn("no pending request found", "req_id", reqID, "code", code)
		return false
	}

	if protocol.IsSuccess(code) {
		p.done <- result{payload: payload}
	} else {
		p.done <- result{err: &StatusError{Msg: p.msg, Code: code, Payload: payload}}
	}
	return true
}

// Pending returns the number of in-flight requests.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close rejects every pending request with ErrClosed. Later Sends fail.
func (c *Correlator) Close() {
	c.mu.Lock()
	c.closed = true
	all := c.pending
	c.pending = make(map[uint64]*pending)
	c.mu.Unlock()

	for _, p := range all {
		p.done <- result{err: ErrClosed}
	}
}

// discard removes a pending entry. It returns false if the entry was
// already resolved.
func (c *Correlator) discard(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[id]; !ok {
		return false
	}
	delete(c.pending, id)
	return true
}
