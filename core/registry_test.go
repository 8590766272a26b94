package core

import (
	"fmt"
	"sync"
	"testing"

	"pkt.systems/voxsync/schema"
)

func TestRegistryCountsByRole(t *testing.T) {
	reg := NewRegistry()
	reg.Upsert("a", schema.RoleDesktop, schema.ModeUnknown)
	reg.Upsert("b", schema.RoleMobile, schema.ModeLAN)
	reg.Upsert("c", schema.RoleMobile, schema.ModeUnknown)

	if got := reg.Mobiles(); got != 2 {
		t.Fatalf("Mobiles: got %d, want 2", got)
	}
	if got := reg.Desktops(); got != 1 {
		t.Fatalf("Desktops: got %d, want 1", got)
	}

	reg.Remove("b")
	if got := reg.Mobiles(); got != 1 {
		t.Fatalf("Mobiles after remove: got %d, want 1", got)
	}
}

func TestRegistryReRegisterOverwrites(t *testing.T) {
	reg := NewRegistry()
	reg.Upsert("a", schema.RoleMobile, schema.ModeLAN)
	reg.Upsert("a", schema.RoleDesktop, schema.ModeUnknown)

	if got := reg.Mobiles(); got != 0 {
		t.Fatalf("Mobiles: got %d, want 0", got)
	}
	if got := reg.Desktops(); got != 1 {
		t.Fatalf("Desktops: got %d, want 1", got)
	}
}

func TestRegistryMobileModePriority(t *testing.T) {
	reg := NewRegistry()
	if got := reg.MobileMode(); got != schema.ModeUnknown {
		t.Fatalf("empty registry mode: got %q", got)
	}

	reg.Upsert("a", schema.RoleMobile, schema.ModeUnknown)
	if got := reg.MobileMode(); got != schema.ModeUnknown {
		t.Fatalf("unknown-only mode: got %q", got)
	}

	reg.Upsert("b", schema.RoleMobile, schema.ModeLAN)
	if got := reg.MobileMode(); got != schema.ModeLAN {
		t.Fatalf("lan mode: got %q", got)
	}

	reg.Upsert("c", schema.RoleMobile, schema.ModeUSB)
	if got := reg.MobileMode(); got != schema.ModeUSB {
		t.Fatalf("usb wins: got %q", got)
	}

	// Desktop mode never contributes to the summary.
	reg.Upsert("d", schema.RoleDesktop, schema.ModeUSB)
	reg.Remove("c")
	if got := reg.MobileMode(); got != schema.ModeLAN {
		t.Fatalf("after usb mobile left: got %q", got)
	}
}

func TestRegistryStatusMatchesQueries(t *testing.T) {
	reg := NewRegistry()
	reg.Upsert("a", schema.RoleDesktop, schema.ModeUnknown)
	reg.Upsert("b", schema.RoleMobile, schema.ModeLAN)

	status := reg.Status()
	if status.Mobile != 1 || status.Desktop != 1 || status.MobileMode != schema.ModeLAN {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestRegistryConcurrentLifecycles(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := schema.ConnID(fmt.Sprintf("conn-%d", n))
			reg.Upsert(id, schema.RoleMobile, schema.ModeLAN)
			reg.Status()
			if n%2 == 0 {
				reg.Remove(id)
			}
		}(i)
	}
	wg.Wait()

	if got := reg.Mobiles(); got != 25 {
		t.Fatalf("Mobiles: got %d, want 25", got)
	}
	if got := len(reg.Snapshot()); got != 25 {
		t.Fatalf("Snapshot: got %d entries, want 25", got)
	}
}
