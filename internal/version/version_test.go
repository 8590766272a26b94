package version

import (
	"strings"
	"testing"
)

func TestCurrentNeverEmpty(t *testing.T) {
	if v := Current(); strings.TrimSpace(v) == "" {
		t.Fatalf("empty version")
	}
}

func TestModuleFallsBackToDefault(t *testing.T) {
	if m := Module(); strings.TrimSpace(m) == "" {
		t.Fatalf("empty module path")
	}
}

func TestBuildVersionOverride(t *testing.T) {
	old := buildVersion
	defer func() { buildVersion = old }()
	buildVersion = "v1.2.3"
	if v := Current(); v != "v1.2.3" {
		t.Fatalf("override ignored: %q", v)
	}
}
