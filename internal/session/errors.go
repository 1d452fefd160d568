package session

import "errors"

var (
	// ErrSessionNotFound is returned when no session has the given id.
	ErrSessionNotFound = errors.New("session: not found")

	// ErrSendQueueFull is returned when a session's outbound queue is full.
	ErrSendQueueFull = errors.New("session: send queue full")

	// ErrSessionClosed is returned when sending to a session that is shutting down.
	ErrSessionClosed = errors.New("session: closed")
)
