// Package outbound correlates driver-initiated requests with the hub's
// responses.
//
// Send allocates the next id from a process-wide counter, writes the request
// frame to one session and blocks until the matching response arrives, the
// request times out, or the context is cancelled. Responses are fed in
// through Resolve by the dispatcher. A response for an id that is no longer
// pending (because it timed out, or was never sent) is logged and dropped.
package outbound
