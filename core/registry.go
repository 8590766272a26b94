package core

import (
	"sync"

	"pkt.systems/voxsync/schema"
)

// ConnInfo is a registry entry for one registered connection.
type ConnInfo struct {
	ID   schema.ConnID
	Role schema.Role
	Mode schema.Mode
}

// Registry maps connection ids to their declared role and transport mode.
// Connections that have connected but not registered are not present.
// Safe for concurrent use from interleaved connection lifecycles.
type Registry struct {
	mu    sync.Mutex
	conns map[schema.ConnID]ConnInfo
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[schema.ConnID]ConnInfo)}
}

// Upsert records or overwrites the role and mode for a connection.
// Re-registration is idempotent; the latest values win.
func (r *Registry) Upsert(id schema.ConnID, role schema.Role, mode schema.Mode) {
	if mode == "" {
		mode = schema.ModeUnknown
	}
	r.mu.Lock()
	r.conns[id] = ConnInfo{ID: id, Role: role, Mode: mode}
	r.mu.Unlock()
}

// Remove drops a connection from the registry. Removing an unknown or
// never-registered id is a no-op.
func (r *Registry) Remove(id schema.ConnID) {
	r.mu.Lock()
	delete(r.conns, id)
	r.mu.Unlock()
}

// Mobiles returns the number of registered mobile connections.
func (r *Registry) Mobiles() int {
	return r.count(schema.RoleMobile)
}

// Desktops returns the number of registered desktop connections.
func (r *Registry) Desktops() int {
	return r.count(schema.RoleDesktop)
}

// MobileMode summarizes the transport mode across registered mobiles:
// usb if any mobile reports usb, else lan if any reports lan, else unknown.
func (r *Registry) MobileMode() schema.Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	mode := schema.ModeUnknown
	for _, info := range r.conns {
		if info.Role != schema.RoleMobile {
			continue
		}
		switch info.Mode {
		case schema.ModeUSB:
			return schema.ModeUSB
		case schema.ModeLAN:
			mode = schema.ModeLAN
		}
	}
	return mode
}

// Status derives the aggregate broadcast payload in one pass.
func (r *Registry) Status() schema.AggregateStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := schema.AggregateStatus{MobileMode: schema.ModeUnknown}
	for _, info := range r.conns {
		switch info.Role {
		case schema.RoleMobile:
			status.Mobile++
			switch info.Mode {
			case schema.ModeUSB:
				status.MobileMode = schema.ModeUSB
			case schema.ModeLAN:
				if status.MobileMode != schema.ModeUSB {
					status.MobileMode = schema.ModeLAN
				}
			}
		case schema.RoleDesktop:
			status.Desktop++
		}
	}
	return status
}

// Snapshot copies the current entries for observability logging.
func (r *Registry) Snapshot() []ConnInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ConnInfo, 0, len(r.conns))
	for _, info := range r.conns {
		out = append(out, info)
	}
	return out
}

func (r *Registry) count(role schema.Role) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, info := range r.conns {
		if info.Role == role {
			n++
		}
	}
	return n
}
