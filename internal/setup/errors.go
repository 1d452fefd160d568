package setup

import "errors"

var (
	// ErrSetupBusy is returned when a setup step is already running.
	ErrSetupBusy = errors.New("setup: step in progress")

	// ErrNoSetupInProgress is returned when user data arrives while no form
	// or confirmation is outstanding.
	ErrNoSetupInProgress = errors.New("setup: no setup awaiting user data")
)
