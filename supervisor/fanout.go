package supervisor

import "pkt.systems/voxsync/schema"

// SinkFanout forwards supervisor events to multiple sinks.
type SinkFanout []Sink

// OnStatus implements Sink.
func (f SinkFanout) OnStatus(status schema.ServerStatus, message string) {
	for _, sink := range f {
		if sink == nil {
			continue
		}
		sink.OnStatus(status, message)
	}
}

// OnLog implements Sink.
func (f SinkFanout) OnLog(line string) {
	for _, sink := range f {
		if sink == nil {
			continue
		}
		sink.OnLog(line)
	}
}
