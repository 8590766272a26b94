package syncclient

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"pkt.systems/voxsync/schema"
)

// DefaultQuietWindow is how long after a local edit incoming buffer updates
// are discarded. Long enough to outlast the relay round trip of the edit's
// own broadcast, short enough that remote edits resume applying quickly.
const DefaultQuietWindow = 300 * time.Millisecond

// Clock returns the current time. time.Now carries a monotonic reading, so
// the suppression window is immune to wall-clock jumps.
type Clock func() time.Time

// Session reconciles local shared-buffer edits and remote broadcasts on one
// endpoint. Convergence is last-writer-wins: concurrent edits inside the
// quiet window can lose one side's change, by the protocol's own admission.
type Session struct {
	mu          sync.Mutex
	clock       Clock
	quietWindow time.Duration

	buffer        string
	lastLocalEdit time.Time

	finals  []string
	interim string
}

// SessionOption adjusts session construction.
type SessionOption func(*Session)

// WithClock substitutes the time source, for tests.
func WithClock(clock Clock) SessionOption {
	return func(s *Session) { s.clock = clock }
}

// WithQuietWindow overrides the suppression window.
func WithQuietWindow(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.quietWindow = d
		}
	}
}

// NewSession constructs a session with the default quiet window.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		clock:       time.Now,
		quietWindow: DefaultQuietWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LocalEdit applies a local buffer edit and returns the bufferUpdate
// envelope to emit. The suppression guard is stamped from the edit itself,
// not from the emit.
func (s *Session) LocalEdit(content string) (schema.Envelope, error) {
	s.mu.Lock()
	s.buffer = content
	s.lastLocalEdit = s.clock()
	s.mu.Unlock()

	data, err := json.Marshal(schema.BufferUpdate{Content: content})
	if err != nil {
		return schema.Envelope{}, err
	}
	return schema.Envelope{Event: schema.EventBufferUpdate, Data: data}, nil
}

// ApplyBufferUpdate applies a remote buffer broadcast unless a local edit
// happened within the quiet window. Reports whether the update was applied.
func (s *Session) ApplyBufferUpdate(update schema.BufferUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.lastLocalEdit.IsZero() && s.clock().Sub(s.lastLocalEdit) < s.quietWindow {
		return false
	}
	s.buffer = update.Content
	return true
}

// ApplyChunk folds a transcript chunk into the stream state: final chunks
// append to the log and clear the scratch slot, interim chunks replace it.
func (s *Session) ApplyChunk(chunk schema.TranscriptChunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if chunk.IsFinal {
		s.finals = append(s.finals, chunk.Text)
		s.interim = ""
		return
	}
	s.interim = chunk.Text
}

// ApplyClear empties the accumulated log and the scratch slot.
func (s *Session) ApplyClear() {
	s.mu.Lock()
	s.finals = nil
	s.interim = ""
	s.mu.Unlock()
}

// HandleEnvelope dispatches an incoming relay event to the session state.
// Unknown events and undecodable payloads are ignored; the relay passes
// payloads through verbatim, so a bad one is the sender's bug, not ours.
func (s *Session) HandleEnvelope(env schema.Envelope) {
	switch env.Event {
	case schema.EventTranscriptChunk:
		var chunk schema.TranscriptChunk
		if err := json.Unmarshal(env.Data, &chunk); err != nil {
			return
		}
		s.ApplyChunk(chunk)
	case schema.EventTranscriptClear:
		s.ApplyClear()
	case schema.EventBufferUpdate:
		var update schema.BufferUpdate
		if err := json.Unmarshal(env.Data, &update); err != nil {
			return
		}
		s.ApplyBufferUpdate(update)
	}
}

// Buffer returns the endpoint's current copy of the shared text buffer.
func (s *Session) Buffer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer
}

// Transcript returns the accumulated final chunks joined by newlines.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.finals, "\n")
}

// Interim returns the replaceable scratch chunk, if any.
func (s *Session) Interim() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interim
}
