package eventbus

import (
	"testing"
	"time"

	"pkt.systems/voxsync/schema"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.OnStatus(schema.StatusRunning, "")

	select {
	case got := <-ch:
		if got.Type != EventStatus {
			t.Fatalf("expected status event, got %v", got.Type)
		}
		if got.Status != schema.StatusRunning {
			t.Fatalf("unexpected status: %q", got.Status)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for event")
	}
}

func TestLogEventCarriesLine(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.OnLog("[12:00:00] relay up")

	select {
	case got := <-ch:
		if got.Type != EventLog || got.Line != "[12:00:00] relay up" {
			t.Fatalf("unexpected event: %+v", got)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for event")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed")
	}
}

func TestPublishDoesNotBlockWhenFull(t *testing.T) {
	bus := New(nil)
	bus.depth = 1
	_, cancel := bus.Subscribe()
	defer cancel()

	var sendCh chan Event
	bus.mu.Lock()
	for ch := range bus.subs {
		sendCh = ch
		break
	}
	bus.mu.Unlock()
	if sendCh == nil {
		t.Fatalf("expected subscriber channel")
	}
	sendCh <- Event{Type: EventLog}
	done := make(chan struct{})
	go func() {
		bus.OnLog("overflow")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("publish blocked on full subscriber")
	}
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	bus := New(nil)
	bus.OnStatus(schema.StatusError, "spawn failed")
	bus.OnLog("dropped on the floor")
}
