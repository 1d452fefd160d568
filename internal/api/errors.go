package api

import (
	"encoding/json"
	"errors"
	"net/http"
)

var (
	// ErrNoHubConnection is returned by driver-initiated requests when no
	// hub is connected.
	ErrNoHubConnection = errors.New("api: no hub connection")

	// ErrMultipleHubConnections is returned by driver-initiated requests
	// when more than one hub is connected and the target is ambiguous.
	ErrMultipleHubConnections = errors.New("api: more than one hub connection")
)

// httpError is the body of non-2xx responses on the plain HTTP routes.
// Hub errors travel as protocol responses over the WebSocket instead.
type httpError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // the peer may already be gone
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, httpError{Status: status, Message: message})
}
