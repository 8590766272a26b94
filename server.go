package voxsync

import (
	"context"
	"errors"
	"net"
	"sync"

	"pkt.systems/pslog"

	"pkt.systems/voxsync/relay"
)

// Server runs the relay service with a managed lifecycle.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// ServerConfig configures the relay compositor.
type ServerConfig struct {
	Relay relay.Config
	// OnListen is invoked with the bound listener before serving begins,
	// so the caller can print the banner carrying the startup marker.
	OnListen func(addr net.Addr)
}

// NewServer constructs a voxsync relay server.
func NewServer(cfg ServerConfig) (Server, error) {
	if cfg.Relay.Addr == "" {
		return nil, errors.New("relay listen address is required")
	}
	hub := relay.NewHub()
	return &relayServer{
		cfg: cfg,
		hub: hub,
		srv: relay.NewServer(cfg.Relay, hub),
	}, nil
}

type relayServer struct {
	cfg    ServerConfig
	hub    *relay.Hub
	srv    *relay.Server
	logger pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
}

func (s *relayServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 1)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	ln, err := net.Listen("tcp", s.cfg.Relay.Addr)
	if err != nil {
		s.logger.Error("relay listen failed", "addr", s.cfg.Relay.Addr, "err", err)
		return err
	}
	s.logger.Info("server start", "addr", ln.Addr().String())
	if s.cfg.OnListen != nil {
		s.cfg.OnListen(ln.Addr())
	}
	go func() {
		if err := relay.Serve(s.ctx, ln, s.srv.Handler()); err != nil {
			s.logger.Error("relay server failed", "err", err)
			s.errCh <- err
		}
	}()
	return nil
}

func (s *relayServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (s *relayServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	log := s.logger
	s.mu.Unlock()
	if !started {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("server stop requested", "connections", s.hub.ConnectionCount())
	if cancel != nil {
		cancel()
	}
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-s.ctx.Done():
		log.Info("server stopped")
		return nil
	}
}
