// Package session tracks the hub connections attached to the driver.
//
// Each accepted WebSocket connection becomes a Session with a stable id
// derived from the peer's remote address. Sessions are authenticated as soon
// as they are registered: the protocol trusts the transport layer.
//
// Outbound frames are queued per session and written by a dedicated write
// pump, so frames addressed to one session leave in the order they were
// queued. Sending to an unknown session is logged and reported with
// ErrSessionNotFound; a disconnect racing a pending send is expected.
package session
