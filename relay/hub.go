package relay

import (
	"context"
	"encoding/json"
	"sync"

	"pkt.systems/voxsync/core"
	"pkt.systems/voxsync/internal/logx"
	"pkt.systems/voxsync/schema"
)

// Peer is one live connection's outbound side. TrySend must not block; a
// peer that cannot accept the event right now loses it.
type Peer interface {
	TrySend(env schema.Envelope) bool
}

// Hub multiplexes events between all live endpoints. It owns the connection
// registry; each inbound event is one serialized mutation-and-broadcast turn.
type Hub struct {
	mu       sync.Mutex
	peers    map[schema.ConnID]Peer
	registry *core.Registry
}

// NewHub constructs a hub with an empty registry.
func NewHub() *Hub {
	return &Hub{
		peers:    make(map[schema.ConnID]Peer),
		registry: core.NewRegistry(),
	}
}

// Connect adds an unregistered connection. No broadcast; the connection
// stays out of the aggregate until it registers.
func (h *Hub) Connect(ctx context.Context, id schema.ConnID, peer Peer) {
	h.mu.Lock()
	h.peers[id] = peer
	total := len(h.peers)
	h.mu.Unlock()
	logx.WithConn(ctx, id).Info("hub connect", "total", total)
}

// Disconnect removes the connection and rebroadcasts the aggregate status.
func (h *Hub) Disconnect(ctx context.Context, id schema.ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.peers[id]; !ok {
		return
	}
	delete(h.peers, id)
	h.registry.Remove(id)
	status := h.registry.Status()
	logx.WithConn(ctx, id).Info("hub disconnect",
		"mobile", status.Mobile, "desktop", status.Desktop, "total", len(h.peers))
	h.broadcastStatusLocked(ctx, status)
}

// HandleEvent processes one inbound event from a connection. Malformed or
// unknown events are dropped with a log line; nothing here is fatal.
func (h *Hub) HandleEvent(ctx context.Context, id schema.ConnID, env schema.Envelope) {
	switch env.Event {
	case schema.EventRegister:
		h.handleRegister(ctx, id, env)
	case schema.EventTranscriptChunk, schema.EventTranscriptClear, schema.EventBufferUpdate:
		h.relay(ctx, id, env)
	default:
		logx.WithConn(ctx, id).Debug("hub event dropped", "event", env.Event, "err", schema.ErrUnknownEvent)
	}
}

// ConnectionCount returns the number of registered connections, as exposed
// by the health endpoint.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	status := h.registry.Status()
	return status.Mobile + status.Desktop
}

// Status returns the current aggregate status.
func (h *Hub) Status() schema.AggregateStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registry.Status()
}

func (h *Hub) handleRegister(ctx context.Context, id schema.ConnID, env schema.Envelope) {
	payload, err := schema.NormalizeRegister(env.Data)
	if err != nil {
		// Connection stays unregistered; never fatal.
		logx.WithConn(ctx, id).Warn("hub register ignored", "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.peers[id]; !ok {
		return
	}
	h.registry.Upsert(id, payload.Role, payload.Mode)
	status := h.registry.Status()
	log := logx.WithRole(logx.WithConn(ctx, id), payload.Role, payload.Mode)
	log.Info("hub register",
		"mobile", status.Mobile, "desktop", status.Desktop, "mobile_mode", status.MobileMode)
	h.broadcastStatusLocked(ctx, status)
}

// relay forwards the envelope verbatim to every other live connection.
// Fan-out only; a peer with a full queue loses the event, no retry.
func (h *Hub) relay(ctx context.Context, sender schema.ConnID, env schema.Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	dropped := 0
	for id, peer := range h.peers {
		if id == sender {
			continue
		}
		if !peer.TrySend(env) {
			dropped++
		}
	}
	log := logx.WithConn(ctx, sender)
	log.Trace("hub relay", "event", env.Event, "recipients", len(h.peers)-1)
	if dropped > 0 {
		log.Warn("hub relay dropped", "event", env.Event, "dropped", dropped)
	}
}

// broadcastStatusLocked pushes connectionStatus to all connections, the
// triggering sender included so it can self-confirm.
func (h *Hub) broadcastStatusLocked(ctx context.Context, status schema.AggregateStatus) {
	env, err := statusEnvelope(status)
	if err != nil {
		logx.Ctx(ctx).Error("hub status encode failed", "err", err)
		return
	}
	dropped := 0
	for _, peer := range h.peers {
		if !peer.TrySend(env) {
			dropped++
		}
	}
	if dropped > 0 {
		logx.Ctx(ctx).Warn("hub status dropped", "dropped", dropped)
	}
}

func statusEnvelope(status schema.AggregateStatus) (schema.Envelope, error) {
	data, err := json.Marshal(status)
	if err != nil {
		return schema.Envelope{}, err
	}
	return schema.Envelope{Event: schema.EventConnectionStatus, Data: data}, nil
}
