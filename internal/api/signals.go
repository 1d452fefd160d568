package api

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/nerrad567/hubdriver-core/internal/entity"
	"github.com/nerrad567/hubdriver-core/internal/infrastructure/logging"
	"github.com/nerrad567/hubdriver-core/internal/protocol"
)

// SignalKind identifies a driver-facing notification.
type SignalKind string

// Signal kinds.
const (
	SignalConnect             SignalKind = "connect"
	SignalDisconnect          SignalKind = "disconnect"
	SignalEnterStandby        SignalKind = "enter_standby"
	SignalExitStandby         SignalKind = "exit_standby"
	SignalSetupAbort          SignalKind = "setup_abort"
	SignalSubscribeEntities   SignalKind = "subscribe_entities"
	SignalUnsubscribeEntities SignalKind = "unsubscribe_entities"
	SignalEntityCommand       SignalKind = "entity_command"
	SignalSetupDriver         SignalKind = "setup_driver"
	SignalSetupUserData       SignalKind = "setup_user_data"
	SignalOAuth2Authorized    SignalKind = "oauth2_authorized"
	SignalOAuth2Revoked       SignalKind = "oauth2_revoked"
	SignalSessionOpened       SignalKind = "session_opened"
	SignalSessionClosed       SignalKind = "session_closed"
)

// Signal carries the details of a notification. Only the fields relevant
// to Kind are set.
type Signal struct {
	Kind      SignalKind
	SessionID string

	// ReqID is the hub request to acknowledge for entity_command,
	// setup_driver and setup_user_data.
	ReqID uint64

	// EntityIDs echoes the requested ids of a (un)subscribe verbatim,
	// whether or not they resolved.
	EntityIDs   []string
	Unsubscribe *entity.UnsubscribeResult

	Command    *protocol.EntityCommandRequest
	Setup      *protocol.SetupDriverRequest
	UserData   *protocol.SetDriverUserDataRequest
	SetupError protocol.SetupError

	// Data is the raw msg_data of OAuth notifications.
	Data json.RawMessage
}

// SignalHandler receives signals. Handlers run on the session's read loop
// and must not block for long.
type SignalHandler func(ctx context.Context, sig Signal)

type subscription struct {
	id int
	fn SignalHandler
}

// signalBus fans signals out to subscribers in subscription order.
type signalBus struct {
	mu       sync.RWMutex
	handlers map[SignalKind][]subscription
	nextID   int
	logger   *logging.Logger
}

func newSignalBus(logger *logging.Logger) *signalBus {
	return &signalBus{
		handlers: make(map[SignalKind][]subscription),
		logger:   logger,
	}
}

func (b *signalBus) subscribe(kind SignalKind, fn SignalHandler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[kind] = append(b.handlers[kind], subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			subs := b.handlers[kind]
			for i, sub := range subs {
				if sub.id == id {
					b.handlers[kind] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
		})
	}
}

// emit calls every handler for sig.Kind and returns how many ran.
// A panicking handler is logged and does not stop the others.
func (b *signalBus) emit(ctx context.Context, sig Signal) int {
	b.mu.RLock()
	subs := make([]subscription, len(b.handlers[sig.Kind]))
	copy(subs, b.handlers[sig.Kind])
	b.mu.RUnlock()

	for _, sub := range subs {
		b.call(ctx, sub.fn, sig)
	}
	return len(subs)
}

func (b *signalBus) call(ctx context.Context, fn SignalHandler, sig Signal) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic in signal handler", "signal", sig.Kind, "session_id", sig.SessionID, "panic", r)
		}
	}()
	fn(ctx, sig)
}

// Subscribe registers fn for signals of the given kind. The returned
// function removes the subscription.
func (s *Server) Subscribe(kind SignalKind, fn SignalHandler) (unsubscribe func()) {
	return s.signals.subscribe(kind, fn)
}

func (s *Server) emit(ctx context.Context, sig Signal) int {
	return s.signals.emit(ctx, sig)
}
