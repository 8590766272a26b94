package schema

// ConnID identifies a live transport connection. Assigned at connect time,
// never reused while the connection is alive.
type ConnID string

// Role declares which kind of endpoint a connection is.
type Role string

const (
	// RoleMobile is a phone endpoint.
	RoleMobile Role = "mobile"
	// RoleDesktop is a desktop endpoint.
	RoleDesktop Role = "desktop"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleMobile || r == RoleDesktop
}

// Mode is the transport mode a mobile endpoint reports during registration.
type Mode string

const (
	// ModeUSB means the phone reaches the relay over a forwarded USB port.
	ModeUSB Mode = "usb"
	// ModeLAN means the phone reaches the relay over the local network.
	ModeLAN Mode = "lan"
	// ModeUnknown is the zero mode for unregistered or desktop connections.
	ModeUnknown Mode = "unknown"
)

// AggregateStatus is derived from the registry and broadcast to every
// connection whenever the registry changes.
type AggregateStatus struct {
	Mobile     int  `json:"mobile"`
	Desktop    int  `json:"desktop"`
	MobileMode Mode `json:"mobileMode"`
}

// StartupMarker is the substring the relay prints once its listener is up.
// The supervisor matches child stdout against it to detect readiness.
const StartupMarker = "sync service listening"

// ServerStatus is the supervisor's view of the relay child process.
type ServerStatus string

const (
	// StatusStopped means no relay process is running.
	StatusStopped ServerStatus = "stopped"
	// StatusStarting means the process was spawned but has not confirmed readiness.
	StatusStarting ServerStatus = "starting"
	// StatusRunning means the relay is serving.
	StatusRunning ServerStatus = "running"
	// StatusStopping means a termination signal was sent and the exit is pending.
	StatusStopping ServerStatus = "stopping"
	// StatusError means the process failed to start, died early, or refused to stop.
	StatusError ServerStatus = "error"
)

// CommandResult reports the outcome of a supervisor start/stop command.
// Rejections (start while running, stop while stopped) are results, not errors.
type CommandResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}
