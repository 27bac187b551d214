// Package message defines the action vocabulary shared by reducers, selectors and sagas.
package message

import "fmt"

// Type is the globally unique name of a message kind.
type Type string

const (
	// Wildcard matches every message type when used as a saga pattern.
	Wildcard Type = "*"

	// Init is dispatched by a store once, before any user message.
	Init Type = "@@reducks/INIT"

	// StateReset is the type used to compute default state when a slice is reset.
	StateReset Type = "__reducks.STATE_RESET__"
)

// Message is an action: a typed event with an optional payload and metadata.
// A message with Error set carries a failure value in Payload.
type Message struct {
	Type    Type
	Payload any
	Meta    any
	Error   bool
}

// New creates a message of type t carrying payload.
func New(t Type, payload any) Message {
	return Message{Type: t, Payload: payload}
}

// Failure creates an error message whose payload is err.
func Failure(t Type, err error, meta any) Message {
	return Message{Type: t, Payload: err, Meta: meta, Error: true}
}

// WithMeta returns a copy of m carrying meta.
func (m Message) WithMeta(meta any) Message {
	m.Meta = meta
	return m
}

func (m Message) String() string {
	if m.Error {
		return fmt.Sprintf("%s(error: %v)", m.Type, m.Payload)
	}
	return fmt.Sprintf("%s(%v)", m.Type, m.Payload)
}

// PayloadError returns the payload as an error.
// Non-error payloads of a failure message are wrapped so the value is never lost.
func PayloadError(m Message) error {
	switch p := m.Payload.(type) {
	case nil:
		if m.Error {
			return fmt.Errorf("%s failed", m.Type)
		}
		return nil
	case error:
		return p
	default:
		if m.Error {
			return fmt.Errorf("%s failed: %v", m.Type, p)
		}
		return nil
	}
}
