package schema

import (
	"encoding/json"
	"strings"
)

// registerObject is the object form of a register payload. The original
// mobile client sends the role under "type"; newer clients use "role".
type registerObject struct {
	Role string `json:"role"`
	Type string `json:"type"`
	Mode string `json:"mode"`
}

// NormalizeRegister decodes a register payload. Two shapes are accepted: a
// bare JSON string naming the role ("desktop"), and an object with role and
// optional mode. An unknown role yields ErrInvalidRole; an unknown mode
// degrades to ModeUnknown rather than rejecting the registration.
func NormalizeRegister(raw json.RawMessage) (RegisterPayload, error) {
	if len(raw) == 0 {
		return RegisterPayload{}, ErrInvalidPayload
	}

	var legacy string
	if err := json.Unmarshal(raw, &legacy); err == nil {
		role, err := normalizeRole(legacy)
		if err != nil {
			return RegisterPayload{}, err
		}
		return RegisterPayload{Role: role, Mode: ModeUnknown}, nil
	}

	var obj registerObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return RegisterPayload{}, ErrInvalidPayload
	}
	roleValue := obj.Role
	if roleValue == "" {
		roleValue = obj.Type
	}
	role, err := normalizeRole(roleValue)
	if err != nil {
		return RegisterPayload{}, err
	}
	payload := RegisterPayload{Role: role, Mode: ModeUnknown}
	if role == RoleMobile {
		payload.Mode = normalizeMode(obj.Mode)
	}
	return payload, nil
}

func normalizeRole(value string) (Role, error) {
	switch Role(strings.TrimSpace(strings.ToLower(value))) {
	case RoleMobile:
		return RoleMobile, nil
	case RoleDesktop:
		return RoleDesktop, nil
	default:
		return "", ErrInvalidRole
	}
}

func normalizeMode(value string) Mode {
	switch Mode(strings.TrimSpace(strings.ToLower(value))) {
	case ModeUSB:
		return ModeUSB
	case ModeLAN:
		return ModeLAN
	default:
		return ModeUnknown
	}
}
