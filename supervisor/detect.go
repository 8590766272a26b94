package supervisor

import (
	"strings"

	"pkt.systems/voxsync/schema"
)

// ReadinessDetector decides whether a child stdout line means the relay has
// finished initializing. Isolated so the string-match heuristic can be
// swapped for a structured health check without touching the state machine.
type ReadinessDetector interface {
	Ready(line string) bool
}

// MarkerDetector matches a known substring in the child's output.
type MarkerDetector struct {
	Marker string
}

// Ready implements ReadinessDetector.
func (d MarkerDetector) Ready(line string) bool {
	return d.Marker != "" && strings.Contains(line, d.Marker)
}

// DefaultDetector matches the banner line the relay prints on listen.
func DefaultDetector() ReadinessDetector {
	return MarkerDetector{Marker: schema.StartupMarker}
}
