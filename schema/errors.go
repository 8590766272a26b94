package schema

import "errors"

var (
	// ErrInvalidRole indicates a register payload with an unknown role.
	ErrInvalidRole = errors.New("invalid role")
	// ErrInvalidPayload indicates a payload that could not be decoded.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrUnknownEvent indicates an event type the hub does not handle.
	ErrUnknownEvent = errors.New("unknown event")
)
