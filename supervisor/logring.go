package supervisor

import "sync"

// DefaultLogCapacity bounds the retained relay log lines.
const DefaultLogCapacity = 500

// logRing keeps the most recent log lines, evicting oldest-first.
type logRing struct {
	mu       sync.Mutex
	lines    []string
	capacity int
}

func newLogRing(capacity int) *logRing {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &logRing{capacity: capacity}
}

// Append adds a line, trimming from the front past capacity.
func (r *logRing) Append(line string) {
	r.mu.Lock()
	r.lines = append(r.lines, line)
	if len(r.lines) > r.capacity {
		trim := len(r.lines) - r.capacity
		r.lines = r.lines[trim:]
	}
	r.mu.Unlock()
}

// Snapshot returns a copy of the retained lines, oldest first.
func (r *logRing) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}
