package eventbus

import (
	"context"
	"sync"

	"pkt.systems/pslog"

	"pkt.systems/voxsync/schema"
)

// EventType identifies the event payload.
type EventType string

const (
	// EventStatus carries a supervisor status change.
	EventStatus EventType = "status"
	// EventLog carries one timestamped relay log line.
	EventLog EventType = "log"
)

// Event represents a UI-facing event emitted by the supervisor.
type Event struct {
	Type    EventType
	Status  schema.ServerStatus
	Message string
	Line    string
}

// Bus fans supervisor events out to subscribers. Delivery is fire-and-forget:
// a full or absent subscriber loses the event, it is never queued elsewhere.
type Bus struct {
	mu    sync.Mutex
	subs  map[chan Event]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[chan Event]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber and returns a channel + cancel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	count := len(b.subs)
	b.mu.Unlock()
	if b.log != nil {
		b.log.Debug("eventbus subscribe", "subs", count)
	}
	return ch, func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
		close(ch)
		if b.log != nil {
			b.log.Debug("eventbus unsubscribe")
		}
	}
}

// OnStatus publishes a status change.
func (b *Bus) OnStatus(status schema.ServerStatus, message string) {
	b.publish(Event{Type: EventStatus, Status: status, Message: message})
}

// OnLog publishes a log line.
func (b *Bus) OnLog(line string) {
	b.publish(Event{Type: EventLog, Line: line})
}

func (b *Bus) publish(event Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	subs := make([]chan Event, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()
	if len(subs) == 0 {
		return
	}
	dropped := 0
	for _, sub := range subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 && b.log != nil {
		b.log.Trace("eventbus dropped", "count", dropped)
	}
}
