package schema

import "encoding/json"

// EventType names a wire event exchanged between endpoints and the relay.
type EventType string

const (
	// EventRegister declares a connection's role and transport mode.
	EventRegister EventType = "register"
	// EventTranscriptChunk carries a speech-to-text fragment.
	EventTranscriptChunk EventType = "transcriptChunk"
	// EventTranscriptClear resets the transcript on every other endpoint.
	EventTranscriptClear EventType = "transcriptClear"
	// EventBufferUpdate carries the full shared text buffer.
	EventBufferUpdate EventType = "bufferUpdate"
	// EventConnectionStatus is pushed by the hub on every registry change.
	EventConnectionStatus EventType = "connectionStatus"
)

// Envelope is the JSON frame on the wire: an event name and a raw payload.
// Relayed payloads pass through verbatim; only register is parsed by the hub.
type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// TranscriptChunk is a speech-to-text fragment. Final chunks append to the
// transcript log; interim chunks replace the scratch slot.
type TranscriptChunk struct {
	SessionID string `json:"sessionId,omitempty"`
	Text      string `json:"text"`
	IsFinal   bool   `json:"isFinal,omitempty"`
}

// BufferUpdate replaces the shared text buffer with its full new content.
type BufferUpdate struct {
	Content string `json:"content"`
}

// RegisterPayload is the normalized form of a register event.
type RegisterPayload struct {
	Role Role `json:"role"`
	Mode Mode `json:"mode,omitempty"`
}

// HealthResponse is served by the relay liveness endpoint.
type HealthResponse struct {
	Status          string `json:"status"`
	ConnectionCount int    `json:"connectionCount"`
}
