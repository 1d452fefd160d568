package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when the influxdb section is disabled.
	ErrDisabled = errors.New("influxdb: telemetry disabled")

	// ErrConnectionFailed is returned by Connect when the server does not
	// answer the ping or reports itself unhealthy.
	ErrConnectionFailed = errors.New("influxdb: server unreachable")

	// ErrClosed is returned by HealthCheck after Close.
	ErrClosed = errors.New("influxdb: client closed")

	// ErrWriteFailed wraps batch failures handed to the SetOnError callback.
	ErrWriteFailed = errors.New("influxdb: batch write rejected")
)
