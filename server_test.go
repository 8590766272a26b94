package voxsync

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"pkt.systems/voxsync/relay"
	"pkt.systems/voxsync/schema"
)

func TestServerRequiresAddr(t *testing.T) {
	if _, err := NewServer(ServerConfig{}); err == nil {
		t.Fatalf("expected config error")
	}
}

func TestServerLifecycle(t *testing.T) {
	var boundAddr net.Addr
	server, err := NewServer(ServerConfig{
		Relay:    relay.Config{Addr: "127.0.0.1:0"},
		OnListen: func(addr net.Addr) { boundAddr = addr },
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := server.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if boundAddr == nil {
		t.Fatalf("OnListen not invoked")
	}
	if err := server.Start(ctx); err == nil {
		t.Fatalf("second Start accepted")
	}

	url := fmt.Sprintf("http://%s/healthz", boundAddr.String())
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	var health schema.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "ok" {
		t.Fatalf("health: %+v", health)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	if err := server.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := server.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}
