package setup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/hubdriver-core/internal/protocol"
)

// DefaultPacingDelay is the pause before reporting progress on user data.
const DefaultPacingDelay = 500 * time.Millisecond

// Emitter delivers driver_setup_change events to a session.
type Emitter interface {
	SendSetupChange(sessionID string, change protocol.DriverSetupChange) error
}

// Logger defines the logging interface used by the Flow.
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

// Flow is the setup state machine. All public methods are thread-safe.
type Flow struct {
	handler Handler
	emitter Emitter
	pacing  time.Duration
	logger  Logger

	mu    sync.Mutex
	state State
	gen   uint64 // bumped on every accepted step and on abort
}

// NewFlow creates a flow around the driver's handler.
// A negative pacing delay selects DefaultPacingDelay.
func NewFlow(handler Handler, emitter Emitter, pacing time.Duration) *Flow {
	if pacing < 0 {
		pacing = DefaultPacingDelay
	}
	return &Flow{
		handler: handler,
		emitter: emitter,
		pacing:  pacing,
		logger:  noopLogger{},
		state:   StateIdle,
	}
}

// SetLogger sets the logger for the flow.
func (f *Flow) SetLogger(logger Logger) {
	f.logger = logger
}

// State returns the current wizard state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Step is an accepted setup step, ready to run after the request has been
// acknowledged.
type Step struct {
	flow      *Flow
	gen       uint64
	sessionID string
	msg       Message
	userData  bool
}

// Start accepts a setup_driver request. A previous conversation that is
// waiting for user data or has ended is replaced.
func (f *Flow) Start(sessionID string, req DriverSetupRequest) (*Step, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateRunning {
		return nil, ErrSetupBusy
	}
	if f.state == StateAwaitingUserData {
		f.logger.Warn("setup restarted while awaiting user data", "session_id", sessionID)
	}
	f.state = StateRunning
	f.gen++
	return &Step{flow: f, gen: f.gen, sessionID: sessionID, msg: req}, nil
}

// Continue accepts a set_driver_user_data request. msg must be a
// UserDataResponse or a UserConfirmationResponse.
func (f *Flow) Continue(sessionID string, msg Message) (*Step, error) {
	switch msg.(type) {
	case UserDataResponse, UserConfirmationResponse:
	default:
		return nil, fmt.Errorf("setup: unexpected user data message %T", msg)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateAwaitingUserData {
		return nil, fmt.Errorf("%w (state %s)", ErrNoSetupInProgress, f.state)
	}
	f.state = StateRunning
	f.gen++
	return &Step{flow: f, gen: f.gen, sessionID: sessionID, msg: msg, userData: true}, nil
}

// Abort resets the flow to Idle and forwards the abort to the handler.
func (f *Flow) Abort(ctx context.Context, reason protocol.SetupError) {
	f.mu.Lock()
	prev := f.state
	f.state = StateIdle
	f.gen++
	f.mu.Unlock()

	f.logger.Info("driver setup aborted", "reason", reason, "previous_state", prev)
	if _, err := f.invoke(ctx, AbortDriverSetup{Error: reason}); err != nil {
		f.logger.Warn("setup handler failed on abort", "error", err)
	}
}

// Run executes the step: calls the handler and sends the resulting events.
// User data steps wait for the pacing delay and report progress first.
func (s *Step) Run(ctx context.Context) {
	f := s.flow

	if s.userData {
		if f.pacing > 0 {
			timer := time.NewTimer(f.pacing)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				f.transition(s.gen, StateIdle)
				return
			}
		}
		s.emit(progressChange())
	}

	action, err := f.invoke(ctx, s.msg)
	if err != nil {
		f.logger.Error("setup handler failed", "session_id", s.sessionID, "error", err)
		if f.transition(s.gen, StateFailed) {
			s.emit(stopChange(protocol.SetupStateError, protocol.SetupErrorOther))
		}
		return
	}

	switch a := action.(type) {
	case RequestUserInput:
		if !f.transition(s.gen, StateAwaitingUserData) {
			return
		}
		if !s.userData {
			s.emit(progressChange())
		}
		settings := a.Settings
		if settings == nil {
			settings = []any{}
		}
		s.emit(protocol.DriverSetupChange{
			EventType: protocol.SetupEventSetup,
			State:     protocol.SetupStateWaitUserAction,
			RequireUserAction: &protocol.RequireUserAction{
				Input: &protocol.UserInputForm{Title: a.Title, Settings: settings},
			},
		})
	case RequestUserConfirmation:
		if !f.transition(s.gen, StateAwaitingUserData) {
			return
		}
		if !s.userData {
			s.emit(progressChange())
		}
		s.emit(protocol.DriverSetupChange{
			EventType: protocol.SetupEventSetup,
			State:     protocol.SetupStateWaitUserAction,
			RequireUserAction: &protocol.RequireUserAction{
				Confirmation: &protocol.UserConfirmation{
					Title:  a.Title,
					Header: a.Header,
					Image:  a.Image,
					Footer: a.Footer,
				},
			},
		})
	case Complete:
		if f.transition(s.gen, StateComplete) {
			f.logger.Info("driver setup complete", "session_id", s.sessionID)
			s.emit(stopChange(protocol.SetupStateOK, ""))
		}
	case Error:
		code := a.Code
		if code == "" {
			code = protocol.SetupErrorOther
		}
		if f.transition(s.gen, StateFailed) {
			f.logger.Warn("driver setup failed", "session_id", s.sessionID, "error", code)
			s.emit(stopChange(protocol.SetupStateError, code))
		}
	default:
		f.logger.Error("setup handler returned no usable action", "session_id", s.sessionID, "action", fmt.Sprintf("%T", action))
		if f.transition(s.gen, StateFailed) {
			s.emit(stopChange(protocol.SetupStateError, protocol.SetupErrorOther))
		}
	}
}

// emit sends an event, logging delivery failures.
func (s *Step) emit(change protocol.DriverSetupChange) {
	if err := s.flow.emitter.SendSetupChange(s.sessionID, change); err != nil {
		s.flow.logger.Warn("failed to send setup change", "session_id", s.sessionID, "state", change.State, "error", err)
	}
}

// transition moves to next only if no newer step or abort superseded gen.
func (f *Flow) transition(gen uint64, next State) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gen != gen {
		f.logger.Debug("setup step superseded", "next", next)
		return false
	}
	f.state = next
	return true
}

// invoke calls the handler, converting a panic into an error.
func (f *Flow) invoke(ctx context.Context, msg Message) (action Action, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("setup handler panic: %v", r)
		}
	}()
	return f.handler(ctx, msg)
}

func progressChange() protocol.DriverSetupChange {
	return protocol.DriverSetupChange{
		EventType: protocol.SetupEventSetup,
		State:     protocol.SetupStateSetup,
	}
}

func stopChange(state protocol.SetupState, code protocol.SetupError) protocol.DriverSetupChange {
	return protocol.DriverSetupChange{
		EventType: protocol.SetupEventStop,
		State:     state,
		Error:     code,
	}
}
