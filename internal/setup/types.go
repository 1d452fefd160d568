package setup

import (
	"context"

	"github.com/nerrad567/hubdriver-core/internal/protocol"
)

// Message is passed to the Handler for each setup step.
type Message interface {
	setupMessage()
}

// DriverSetupRequest starts a setup conversation.
type DriverSetupRequest struct {
	Reconfigure bool
	SetupData   map[string]string
}

// UserDataResponse carries the values entered in the last form.
type UserDataResponse struct {
	InputValues map[string]string
}

// UserConfirmationResponse carries the answer to a confirmation screen.
type UserConfirmationResponse struct {
	Confirm bool
}

// AbortDriverSetup tells the handler the hub aborted the conversation.
type AbortDriverSetup struct {
	Error protocol.SetupError
}

func (DriverSetupRequest) setupMessage()       {}
func (UserDataResponse) setupMessage()         {}
func (UserConfirmationResponse) setupMessage() {}
func (AbortDriverSetup) setupMessage()         {}

// Action is returned by the Handler to select the next setup step.
type Action interface {
	setupAction()
}

// RequestUserInput shows a form. Settings are sent to the hub verbatim.
type RequestUserInput struct {
	Title    protocol.LanguageText
	Settings []any
}

// RequestUserConfirmation shows a confirmation screen.
type RequestUserConfirmation struct {
	Title  protocol.LanguageText
	Header protocol.LanguageText
	Image  string
	Footer protocol.LanguageText
}

// Complete finishes the setup successfully.
type Complete struct{}

// Error finishes the setup with a failure reason.
type Error struct {
	Code protocol.SetupError
}

func (RequestUserInput) setupAction()        {}
func (RequestUserConfirmation) setupAction() {}
func (Complete) setupAction()                {}
func (Error) setupAction()                   {}

// Handler runs one setup step. The returned Action is ignored for
// AbortDriverSetup messages.
type Handler func(ctx context.Context, msg Message) (Action, error)

// State is the wizard state.
type State int

// Wizard states.
const (
	StateIdle State = iota
	StateRunning
	StateAwaitingUserData
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateAwaitingUserData:
		return "awaiting_user_data"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the conversation has ended.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}
