package outbound

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when no response arrives before the deadline.
	ErrTimeout = errors.New("outbound: request timed out")

	// ErrClosed is returned for requests pending when the correlator closes.
	ErrClosed = errors.New("outbound: correlator closed")
)

// StatusError is returned when the hub answers with a non-success code.
type StatusError struct {
	Msg     string
	Code    int
	Payload []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("outbound: %s failed with status %d", e.Msg, e.Code)
}
