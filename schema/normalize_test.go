package schema

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNormalizeRegisterLegacyString(t *testing.T) {
	payload, err := NormalizeRegister(json.RawMessage(`"desktop"`))
	if err != nil {
		t.Fatalf("NormalizeRegister: %v", err)
	}
	if payload.Role != RoleDesktop {
		t.Fatalf("expected desktop role, got %q", payload.Role)
	}
	if payload.Mode != ModeUnknown {
		t.Fatalf("expected unknown mode, got %q", payload.Mode)
	}
}

func TestNormalizeRegisterObjectForm(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		role Role
		mode Mode
	}{
		{"role key", `{"role":"mobile","mode":"usb"}`, RoleMobile, ModeUSB},
		{"legacy type key", `{"type":"mobile","mode":"lan"}`, RoleMobile, ModeLAN},
		{"desktop ignores mode", `{"role":"desktop","mode":"usb"}`, RoleDesktop, ModeUnknown},
		{"bad mode degrades", `{"role":"mobile","mode":"bluetooth"}`, RoleMobile, ModeUnknown},
		{"mixed case", `{"role":"Mobile","mode":"USB"}`, RoleMobile, ModeUSB},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload, err := NormalizeRegister(json.RawMessage(tc.raw))
			if err != nil {
				t.Fatalf("NormalizeRegister: %v", err)
			}
			if payload.Role != tc.role || payload.Mode != tc.mode {
				t.Fatalf("got %+v, want role=%q mode=%q", payload, tc.role, tc.mode)
			}
		})
	}
}

func TestNormalizeRegisterRejectsUnknownRole(t *testing.T) {
	for _, raw := range []string{`"tablet"`, `{"role":"tablet"}`, `{}`} {
		if _, err := NormalizeRegister(json.RawMessage(raw)); !errors.Is(err, ErrInvalidRole) {
			t.Fatalf("payload %s: expected ErrInvalidRole, got %v", raw, err)
		}
	}
}

func TestNormalizeRegisterRejectsMalformedPayload(t *testing.T) {
	for _, raw := range []string{``, `42`, `[1,2]`, `{`} {
		if _, err := NormalizeRegister(json.RawMessage(raw)); !errors.Is(err, ErrInvalidPayload) {
			t.Fatalf("payload %q: expected ErrInvalidPayload, got %v", raw, err)
		}
	}
}
