package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is the envelope discriminator.
type Kind string

// Envelope kinds.
const (
	KindRequest  Kind = "req"
	KindResponse Kind = "resp"
	KindEvent    Kind = "event"
)

// Category classifies outbound events.
type Category string

// Event categories.
const (
	CategoryDevice Category = "DEVICE"
	CategoryEntity Category = "ENTITY"
)

// ErrMalformedFrame is returned by Parse when a frame is not a valid envelope.
var ErrMalformedFrame = errors.New("protocol: malformed frame")

// Message is the envelope shared by all frames.
type Message struct {
	Kind    Kind            `json:"kind"`
	ID      *uint64         `json:"id,omitempty"`
	ReqID   *uint64         `json:"req_id,omitempty"`
	Code    *int            `json:"code,omitempty"`
	Cat     Category        `json:"cat,omitempty"`
	Msg     string          `json:"msg"`
	MsgData json.RawMessage `json:"msg_data,omitempty"`
}

// RequestID returns the correlation number of the frame.
// Responses use req_id; older hubs echo id instead, so both are accepted.
func (m *Message) RequestID() (uint64, bool) {
	if m.ReqID != nil {
		return *m.ReqID, true
	}
	if m.ID != nil {
		return *m.ID, true
	}
	return 0, false
}

// StatusCode returns the response code, or 0 when absent.
func (m *Message) StatusCode() int {
	if m.Code == nil {
		return 0
	}
	return *m.Code
}

// DecodeData unmarshals msg_data into v. An absent payload leaves v untouched.
func (m *Message) DecodeData(v any) error {
	if len(m.MsgData) == 0 || string(m.MsgData) == "null" {
		return nil
	}
	if err := json.Unmarshal(m.MsgData, v); err != nil {
		return fmt.Errorf("decoding %s msg_data: %w", m.Msg, err)
	}
	return nil
}

// Parse decodes a raw frame into an envelope.
func Parse(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	switch msg.Kind {
	case KindRequest, KindResponse, KindEvent:
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedFrame, msg.Kind)
	}
	return &msg, nil
}

// NewResponse encodes a response frame for request reqID.
func NewResponse(reqID uint64, msg string, code int, data any) ([]byte, error) {
	raw, err := encodeData(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{
		Kind:    KindResponse,
		ReqID:   &reqID,
		Code:    &code,
		Msg:     msg,
		MsgData: raw,
	})
}

// NewEvent encodes an event frame.
func NewEvent(msg string, cat Category, data any) ([]byte, error) {
	raw, err := encodeData(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{
		Kind:    KindEvent,
		Cat:     cat,
		Msg:     msg,
		MsgData: raw,
	})
}

// NewRequest encodes a driver-initiated request frame.
func NewRequest(id uint64, msg string, data any) ([]byte, error) {
	raw, err := encodeData(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{
		Kind:    KindRequest,
		ID:      &id,
		Msg:     msg,
		MsgData: raw,
	})
}

// encodeData marshals a payload. A nil payload becomes an empty object,
// which is what hubs expect for msg_data.
func encodeData(data any) (json.RawMessage, error) {
	if data == nil {
		return json.RawMessage(`{}`), nil
	}
	if raw, ok := data.(json.RawMessage); ok {
		return raw, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding msg_data: %w", err)
	}
	return raw, nil
}
