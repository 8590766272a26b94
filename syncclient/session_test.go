package syncclient

import (
	"encoding/json"
	"testing"
	"time"

	"pkt.systems/voxsync/schema"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestSession() (*Session, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	return NewSession(WithClock(clock.Now)), clock
}

func TestLocalEditEmitsBufferUpdate(t *testing.T) {
	session, _ := newTestSession()
	env, err := session.LocalEdit("hello world")
	if err != nil {
		t.Fatalf("LocalEdit: %v", err)
	}
	if env.Event != schema.EventBufferUpdate {
		t.Fatalf("event: got %q", env.Event)
	}
	var update schema.BufferUpdate
	if err := json.Unmarshal(env.Data, &update); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if update.Content != "hello world" {
		t.Fatalf("content: got %q", update.Content)
	}
	if session.Buffer() != "hello world" {
		t.Fatalf("buffer not applied locally: %q", session.Buffer())
	}
}

func TestEchoSuppressionInsideQuietWindow(t *testing.T) {
	session, clock := newTestSession()
	if _, err := session.LocalEdit("mine"); err != nil {
		t.Fatalf("LocalEdit: %v", err)
	}

	clock.Advance(100 * time.Millisecond)
	if session.ApplyBufferUpdate(schema.BufferUpdate{Content: "echoed"}) {
		t.Fatalf("update inside quiet window was applied")
	}
	if session.Buffer() != "mine" {
		t.Fatalf("local edit clobbered: %q", session.Buffer())
	}
}

func TestUpdateAppliesAfterQuietWindow(t *testing.T) {
	session, clock := newTestSession()
	if _, err := session.LocalEdit("mine"); err != nil {
		t.Fatalf("LocalEdit: %v", err)
	}

	clock.Advance(300 * time.Millisecond)
	if !session.ApplyBufferUpdate(schema.BufferUpdate{Content: "remote"}) {
		t.Fatalf("update after quiet window was discarded")
	}
	if session.Buffer() != "remote" {
		t.Fatalf("buffer: got %q", session.Buffer())
	}
}

func TestQuietWindowStampsFromLatestEdit(t *testing.T) {
	session, clock := newTestSession()
	if _, err := session.LocalEdit("a"); err != nil {
		t.Fatalf("LocalEdit: %v", err)
	}
	clock.Advance(200 * time.Millisecond)
	if _, err := session.LocalEdit("ab"); err != nil {
		t.Fatalf("LocalEdit: %v", err)
	}

	// 250ms after the first edit but only 50ms after the second.
	clock.Advance(50 * time.Millisecond)
	if session.ApplyBufferUpdate(schema.BufferUpdate{Content: "remote"}) {
		t.Fatalf("window did not restart on the second edit")
	}
}

func TestRemoteUpdateAppliesWithNoLocalEdits(t *testing.T) {
	session, _ := newTestSession()
	if !session.ApplyBufferUpdate(schema.BufferUpdate{Content: "remote"}) {
		t.Fatalf("pristine session discarded a remote update")
	}
	if session.Buffer() != "remote" {
		t.Fatalf("buffer: got %q", session.Buffer())
	}
}

func TestTranscriptAccumulation(t *testing.T) {
	session, _ := newTestSession()
	session.ApplyChunk(schema.TranscriptChunk{Text: "hel", IsFinal: false})
	if session.Interim() != "hel" {
		t.Fatalf("interim: got %q", session.Interim())
	}
	session.ApplyChunk(schema.TranscriptChunk{Text: "hello", IsFinal: false})
	if session.Interim() != "hello" {
		t.Fatalf("interim replace: got %q", session.Interim())
	}

	session.ApplyChunk(schema.TranscriptChunk{Text: "hello world", IsFinal: true})
	if session.Interim() != "" {
		t.Fatalf("interim not cleared on final: %q", session.Interim())
	}
	if session.Transcript() != "hello world" {
		t.Fatalf("transcript: got %q", session.Transcript())
	}

	session.ApplyChunk(schema.TranscriptChunk{Text: "second line", IsFinal: true})
	if session.Transcript() != "hello world\nsecond line" {
		t.Fatalf("transcript join: got %q", session.Transcript())
	}
}

func TestClearEmptiesLogAndScratch(t *testing.T) {
	session, _ := newTestSession()
	session.ApplyChunk(schema.TranscriptChunk{Text: "final", IsFinal: true})
	session.ApplyChunk(schema.TranscriptChunk{Text: "scratch"})
	session.ApplyClear()
	if session.Transcript() != "" || session.Interim() != "" {
		t.Fatalf("clear left state: %q / %q", session.Transcript(), session.Interim())
	}
}

func TestHandleEnvelopeDispatch(t *testing.T) {
	session, _ := newTestSession()
	session.HandleEnvelope(schema.Envelope{
		Event: schema.EventTranscriptChunk,
		Data:  json.RawMessage(`{"text":"hi","isFinal":true}`),
	})
	if session.Transcript() != "hi" {
		t.Fatalf("chunk not dispatched: %q", session.Transcript())
	}
	session.HandleEnvelope(schema.Envelope{
		Event: schema.EventBufferUpdate,
		Data:  json.RawMessage(`{"content":"buf"}`),
	})
	if session.Buffer() != "buf" {
		t.Fatalf("update not dispatched: %q", session.Buffer())
	}
	session.HandleEnvelope(schema.Envelope{Event: schema.EventTranscriptClear})
	if session.Transcript() != "" {
		t.Fatalf("clear not dispatched")
	}

	// Garbage payloads are ignored without touching state.
	session.HandleEnvelope(schema.Envelope{
		Event: schema.EventBufferUpdate,
		Data:  json.RawMessage(`nope`),
	})
	if session.Buffer() != "buf" {
		t.Fatalf("garbage payload mutated buffer: %q", session.Buffer())
	}
}
