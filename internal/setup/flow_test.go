package setup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/hubdriver-core/internal/protocol"
)

type recordingEmitter struct {
	mu      sync.Mutex
	changes []protocol.DriverSetupChange
}

func (e *recordingEmitter) SendSetupChange(_ string, change protocol.DriverSetupChange) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.changes = append(e.changes, change)
	return nil
}

func (e *recordingEmitter) all() []protocol.DriverSetupChange {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]protocol.DriverSetupChange, len(e.changes))
	copy(out, e.changes)
	return out
}

func (e *recordingEmitter) states() []protocol.SetupState {
	var out []protocol.SetupState
	for _, c := range e.all() {
		out = append(out, c.State)
	}
	return out
}

// wizardHandler asks for a host, then a confirmation, then completes.
func wizardHandler(calls *[]Message) Handler {
	return func(_ context.Context, msg Message) (Action, error) {
		*calls = append(*calls, msg)
		switch m := msg.(type) {
		case DriverSetupRequest:
			return RequestUserInput{
				Title:    protocol.LanguageText{"en": "Host"},
				Settings: []any{map[string]any{"id": "host"}},
			}, nil
		case UserDataResponse:
			if m.InputValues["host"] == "" {
				return Error{Code: protocol.SetupErrorNotFound}, nil
			}
			return RequestUserConfirmation{Title: protocol.LanguageText{"en": "Pair?"}}, nil
		case UserConfirmationResponse:
			if m.Confirm {
				return Complete{}, nil
			}
			return Error{Code: protocol.SetupErrorAuthorizationError}, nil
		}
		return nil, nil
	}
}

func TestFlowFullConversation(t *testing.T) {
	ctx := context.Background()
	em := &recordingEmitter{}
	var calls []Message
	f := NewFlow(wizardHandler(&calls), em, 0)

	step, err := f.Start("hub", DriverSetupRequest{SetupData: map[string]string{}})
	require.NoError(t, err)
	assert.Equal(t, StateRunning, f.State())
	step.Run(ctx)
	assert.Equal(t, StateAwaitingUserData, f.State())

	changes := em.all()
	require.Len(t, changes, 2)
	assert.Equal(t, protocol.SetupStateSetup, changes[0].State)
	assert.Equal(t, protocol.SetupStateWaitUserAction, changes[1].State)
	require.NotNil(t, changes[1].RequireUserAction)
	require.NotNil(t, changes[1].RequireUserAction.Input)
	assert.Equal(t, "Host", changes[1].RequireUserAction.Input.Title["en"])

	step, err = f.Continue("hub", UserDataResponse{InputValues: map[string]string{"host": "10.0.0.2"}})
	require.NoError(t, err)
	step.Run(ctx)
	assert.Equal(t, StateAwaitingUserData, f.State())

	step, err = f.Continue("hub", UserConfirmationResponse{Confirm: true})
	require.NoError(t, err)
	step.Run(ctx)
	assert.Equal(t, StateComplete, f.State())

	assert.Equal(t, []protocol.SetupState{
		protocol.SetupStateSetup,
		protocol.SetupStateWaitUserAction,
		protocol.SetupStateSetup,
		protocol.SetupStateWaitUserAction,
		protocol.SetupStateSetup,
		protocol.SetupStateOK,
	}, em.states())

	last := em.all()[5]
	assert.Equal(t, protocol.SetupEventStop, last.EventType)
	assert.Len(t, calls, 3)
}

func TestFlowUserDataReportsProgressOnce(t *testing.T) {
	em := &recordingEmitter{}
	var calls []Message
	f := NewFlow(wizardHandler(&calls), em, 0)

	step, err := f.Start("hub", DriverSetupRequest{})
	require.NoError(t, err)
	step.Run(context.Background())

	step, err = f.Continue("hub", UserDataResponse{InputValues: map[string]string{"host": "x"}})
	require.NoError(t, err)
	step.Run(context.Background())

	changes := em.all()[2:]
	require.Len(t, changes, 2)
	assert.Equal(t, protocol.SetupStateSetup, changes[0].State)
	assert.Equal(t, protocol.SetupStateWaitUserAction, changes[1].State)
	assert.NotNil(t, changes[1].RequireUserAction.Confirmation)
}

func TestFlowErrorAction(t *testing.T) {
	em := &recordingEmitter{}
	var calls []Message
	f := NewFlow(wizardHandler(&calls), em, 0)

	step, _ := f.Start("hub", DriverSetupRequest{})
	step.Run(context.Background())
	step, err := f.Continue("hub", UserDataResponse{InputValues: map[string]string{}})
	require.NoError(t, err)
	step.Run(context.Background())

	assert.Equal(t, StateFailed, f.State())
	last := em.all()[len(em.all())-1]
	assert.Equal(t, protocol.SetupEventStop, last.EventType)
	assert.Equal(t, protocol.SetupStateError, last.State)
	assert.Equal(t, protocol.SetupErrorNotFound, last.Error)
}

func TestFlowHandlerFailureIsTerminal(t *testing.T) {
	tests := []struct {
		name    string
		handler Handler
	}{
		{"error", func(context.Context, Message) (Action, error) { return nil, errors.New("boom") }},
		{"panic", func(context.Context, Message) (Action, error) { panic("boom") }},
		{"nil action", func(context.Context, Message) (Action, error) { return nil, nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			em := &recordingEmitter{}
			f := NewFlow(tt.handler, em, 0)

			step, err := f.Start("hub", DriverSetupRequest{})
			require.NoError(t, err)
			step.Run(context.Background())

			assert.Equal(t, StateFailed, f.State())
			changes := em.all()
			require.Len(t, changes, 1)
			assert.Equal(t, protocol.SetupEventStop, changes[0].EventType)
			assert.Equal(t, protocol.SetupStateError, changes[0].State)
			assert.Equal(t, protocol.SetupErrorOther, changes[0].Error)
		})
	}
}

func TestFlowRejectsBusyStart(t *testing.T) {
	release := make(chan struct{})
	f := NewFlow(func(context.Context, Message) (Action, error) {
		<-release
		return Complete{}, nil
	}, &recordingEmitter{}, 0)

	step, err := f.Start("hub", DriverSetupRequest{})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		step.Run(context.Background())
		close(done)
	}()

	_, err = f.Start("hub", DriverSetupRequest{})
	assert.ErrorIs(t, err, ErrSetupBusy)

	close(release)
	<-done
	assert.Equal(t, StateComplete, f.State())

	// A finished conversation can be restarted.
	_, err = f.Start("hub", DriverSetupRequest{Reconfigure: true})
	assert.NoError(t, err)
}

func TestFlowRejectsUnexpectedUserData(t *testing.T) {
	f := NewFlow(func(context.Context, Message) (Action, error) { return Complete{}, nil }, &recordingEmitter{}, 0)

	_, err := f.Continue("hub", UserDataResponse{})
	assert.ErrorIs(t, err, ErrNoSetupInProgress)

	_, err = f.Continue("hub", DriverSetupRequest{})
	assert.Error(t, err)
}

func TestFlowAbort(t *testing.T) {
	em := &recordingEmitter{}
	var calls []Message
	f := NewFlow(wizardHandler(&calls), em, 0)

	step, _ := f.Start("hub", DriverSetupRequest{})
	step.Run(context.Background())
	require.Equal(t, StateAwaitingUserData, f.State())

	f.Abort(context.Background(), protocol.SetupErrorTimeout)
	assert.Equal(t, StateIdle, f.State())
	require.Len(t, calls, 2)
	assert.Equal(t, AbortDriverSetup{Error: protocol.SetupErrorTimeout}, calls[1])

	_, err := f.Continue("hub", UserDataResponse{})
	assert.ErrorIs(t, err, ErrNoSetupInProgress)
}

func TestFlowAbortSupersedesRunningStep(t *testing.T) {
	release := make(chan struct{})
	em := &recordingEmitter{}
	f := NewFlow(func(_ context.Context, msg Message) (Action, error) {
		if _, ok := msg.(DriverSetupRequest); ok {
			<-release
		}
		return Complete{}, nil
	}, em, 0)

	step, _ := f.Start("hub", DriverSetupRequest{})
	done := make(chan struct{})
	go func() {
		step.Run(context.Background())
		close(done)
	}()

	f.Abort(context.Background(), protocol.SetupErrorOther)
	close(release)
	<-done

	assert.Equal(t, StateIdle, f.State())
	assert.Empty(t, em.all())
}

func TestFlowPacingDelay(t *testing.T) {
	em := &recordingEmitter{}
	var calls []Message
	f := NewFlow(wizardHandler(&calls), em, 30*time.Millisecond)

	step, _ := f.Start("hub", DriverSetupRequest{})
	step.Run(context.Background())

	step, err := f.Continue("hub", UserDataResponse{InputValues: map[string]string{"host": "x"}})
	require.NoError(t, err)
	start := time.Now()
	step.Run(context.Background())
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	step, err = f.Continue("hub", UserConfirmationResponse{Confirm: true})
	require.NoError(t, err)
	step.Run(ctx)
	assert.Equal(t, StateIdle, f.State())
}

func TestNewFlowDefaultPacing(t *testing.T) {
	f := NewFlow(nil, nil, -1)
	assert.Equal(t, DefaultPacingDelay, f.pacing)
	assert.Equal(t, StateIdle, f.State())
}
