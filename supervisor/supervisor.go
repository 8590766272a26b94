package supervisor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"pkt.systems/pslog"

	"pkt.systems/voxsync/schema"
)

// Sink receives status changes and log lines. Delivery is fire-and-forget;
// implementations must not block.
type Sink interface {
	OnStatus(status schema.ServerStatus, message string)
	OnLog(line string)
}

// Config controls how the supervisor spawns and observes the relay process.
type Config struct {
	Binary  string
	Args    []string
	WorkDir string
	// ExtraEnv entries are appended to the inherited environment,
	// e.g. VOXSYNC_STT_DEBUG=1 for the STT adapter.
	ExtraEnv []string
	// LogCapacity bounds the retained log lines (default 500).
	LogCapacity int
	// StartupFallback promotes starting to running if the process is still
	// alive and no startup marker was seen (default 1.5s). Marker detection
	// is not reliable in every run mode; the timer guarantees progress.
	StartupFallback time.Duration
	Detector        ReadinessDetector
}

// DefaultStartupFallback is the starting→running fallback delay.
const DefaultStartupFallback = 1500 * time.Millisecond

// Supervisor spawns, monitors, and tears down the relay child process,
// translating its unstructured output into a status state machine.
type Supervisor struct {
	cfg  Config
	sink Sink
	log  pslog.Logger
	logs *logRing

	mu          sync.Mutex
	status      schema.ServerStatus
	cmd         *exec.Cmd
	runningSeen bool
	generation  int
}

// New constructs a supervisor in the stopped state.
func New(cfg Config, sink Sink, logger pslog.Logger) *Supervisor {
	if cfg.Binary == "" {
		cfg.Binary = "voxsync"
	}
	if cfg.StartupFallback <= 0 {
		cfg.StartupFallback = DefaultStartupFallback
	}
	if cfg.Detector == nil {
		cfg.Detector = DefaultDetector()
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Supervisor{
		cfg:    cfg,
		sink:   sink,
		log:    logger,
		logs:   newLogRing(cfg.LogCapacity),
		status: schema.StatusStopped,
	}
}

// Status returns the current state machine status.
func (s *Supervisor) Status() schema.ServerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Logs returns a snapshot of the retained timestamped log lines.
func (s *Supervisor) Logs() []string {
	return s.logs.Snapshot()
}

// Start spawns the relay process. Rejected while one is already starting or
// running. Spawn failure surfaces as error status, never as a panic.
func (s *Supervisor) Start(ctx context.Context) schema.CommandResult {
	s.mu.Lock()
	if s.cmd != nil {
		s.mu.Unlock()
		s.log.Warn("supervisor start rejected", "reason", "already running")
		return schema.CommandResult{OK: false, Message: "relay already running"}
	}
	s.generation++
	gen := s.generation
	s.runningSeen = false
	s.setStatusLocked(schema.StatusStarting, "")

	cmd := exec.Command(s.cfg.Binary, s.cfg.Args...)
	if s.cfg.WorkDir != "" {
		cmd.Dir = s.cfg.WorkDir
	}
	cmd.Env = append(os.Environ(), s.cfg.ExtraEnv...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.failSpawnLocked(err)
		s.mu.Unlock()
		return schema.CommandResult{OK: false, Message: err.Error()}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.failSpawnLocked(err)
		s.mu.Unlock()
		return schema.CommandResult{OK: false, Message: err.Error()}
	}
	if err := cmd.Start(); err != nil {
		s.failSpawnLocked(err)
		s.mu.Unlock()
		return schema.CommandResult{OK: false, Message: err.Error()}
	}
	s.cmd = cmd
	s.mu.Unlock()

	s.log.Info("supervisor spawned relay", "pid", cmd.Process.Pid, "binary", s.cfg.Binary)
	s.pushLog("starting relay process...")

	go s.consumeStdout(gen, stdout)
	go s.consumeStderr(stderr)
	go s.waitExit(gen, cmd)
	time.AfterFunc(s.cfg.StartupFallback, func() { s.startupFallback(gen) })

	_ = ctx
	return schema.CommandResult{OK: true}
}

// Stop sends the relay a termination signal. With no process handle it is a
// rejected no-op that also forces status to stopped defensively. The handle
// is cleared only when the OS reports the exit.
func (s *Supervisor) Stop(ctx context.Context) schema.CommandResult {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil {
		s.setStatusLocked(schema.StatusStopped, "")
		return schema.CommandResult{OK: false, Message: "relay not running"}
	}
	s.setStatusLocked(schema.StatusStopping, "")
	s.pushLog("stopping relay process...")
	if err := s.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		s.log.Error("supervisor stop signal failed", "err", err)
		s.setStatusLocked(schema.StatusError, "failed to stop relay")
		return schema.CommandResult{OK: false, Message: "failed to stop relay"}
	}
	return schema.CommandResult{OK: true}
}

func (s *Supervisor) consumeStdout(gen int, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" {
			continue
		}
		s.pushLog(line)
		if s.cfg.Detector.Ready(line) {
			s.markRunning(gen)
		}
	}
}

func (s *Supervisor) consumeStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" {
			continue
		}
		s.pushLog("[stderr] " + line)
		s.mu.Lock()
		// Once genuinely running, stderr noise does not flip status back.
		if s.status != schema.StatusRunning {
			s.setStatusLocked(schema.StatusError, line)
		}
		s.mu.Unlock()
	}
}

func (s *Supervisor) markRunning(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen || s.cmd == nil {
		return
	}
	if s.status != schema.StatusStarting {
		return
	}
	s.runningSeen = true
	s.setStatusLocked(schema.StatusRunning, "")
}

// startupFallback is a one-shot deferred promotion; a no-op when the marker
// already fired, the process exited, or status left starting.
func (s *Supervisor) startupFallback(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen || s.cmd == nil {
		return
	}
	if s.status != schema.StatusStarting {
		return
	}
	s.log.Debug("supervisor startup fallback fired")
	s.runningSeen = true
	s.setStatusLocked(schema.StatusRunning, "")
}

func (s *Supervisor) waitExit(gen int, cmd *exec.Cmd) {
	err := cmd.Wait()
	s.pushLog("relay process exited")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return
	}
	s.cmd = nil
	message := ""
	if err != nil {
		message = err.Error()
	}
	switch {
	case s.status == schema.StatusStopping:
		s.setStatusLocked(schema.StatusStopped, "")
	case s.runningSeen:
		s.setStatusLocked(schema.StatusStopped, message)
	default:
		if message == "" {
			message = "relay exited before becoming ready"
		}
		s.setStatusLocked(schema.StatusError, message)
	}
	s.log.Info("supervisor relay exit", "status", s.status, "err", err)
}

func (s *Supervisor) failSpawnLocked(err error) {
	s.log.Error("supervisor spawn failed", "err", err, "binary", s.cfg.Binary)
	s.cmd = nil
	s.pushLog(fmt.Sprintf("failed to start relay: %v", err))
	s.setStatusLocked(schema.StatusError, err.Error())
}

func (s *Supervisor) setStatusLocked(status schema.ServerStatus, message string) {
	if s.status == status {
		return
	}
	s.status = status
	s.log.Info("supervisor status", "status", status, "message", message)
	if s.sink != nil {
		s.sink.OnStatus(status, message)
	}
}

// pushLog timestamps, retains, and forwards one log line. The ring has its
// own lock, so this is safe with or without mu held.
func (s *Supervisor) pushLog(line string) {
	formatted := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), line)
	s.logs.Append(formatted)
	if s.sink != nil {
		s.sink.OnLog(formatted)
	}
}
