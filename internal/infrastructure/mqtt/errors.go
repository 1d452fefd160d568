package mqtt

import "errors"

var (
	// ErrNotConnected means the broker link is down; the driver reports
	// commands sent in this state as unavailable.
	ErrNotConnected = errors.New("mqtt: broker link down")

	// ErrConnectionFailed is returned by Connect when the broker cannot be reached.
	ErrConnectionFailed = errors.New("mqtt: cannot reach broker")

	ErrPublishFailed   = errors.New("mqtt: publish failed")
	ErrSubscribeFailed = errors.New("mqtt: subscription failed")

	ErrInvalidQoS      = errors.New("mqtt: qos must be 0, 1 or 2")
	ErrInvalidTopic    = errors.New("mqtt: invalid topic")
	ErrPayloadTooLarge = errors.New("mqtt: payload too large")
)
