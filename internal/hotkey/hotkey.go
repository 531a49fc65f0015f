// Package hotkey registers global accelerators with the desktop session.
package hotkey

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported is returned by New where no global hotkey backend exists.
var ErrUnsupported = errors.New("global hotkeys not supported in this build")

// Manager defines the interface for global hotkey management
type Manager interface {
	Register(accel string, callback func(pressed bool)) error
	Unregister(accel string) error
	Close() error
}

// Modifier is a bit set of modifier keys.
type Modifier int

const (
	ModCtrl Modifier = 1 << iota
	ModShift
	ModAlt
	ModSuper
)

// Accel is a parsed accelerator such as "Alt+R".
type Accel struct {
	Mods Modifier
	// Key is an upper-case letter or digit, "Space", or "F1" to "F12".
	Key string
}

func (a Accel) String() string {
	var parts []string
	for _, m := range []struct {
		mod  Modifier
		name string
	}{{ModCtrl, "Ctrl"}, {ModShift, "Shift"}, {ModAlt, "Alt"}, {ModSuper, "Super"}} {
		if a.Mods&m.mod != 0 {
			parts = append(parts, m.name)
		}
	}
	return strings.Join(append(parts, a.Key), "+")
}

// ParseAccel parses "Mod+Mod+Key". Modifier names are case-insensitive and
// at least one modifier is required.
func ParseAccel(s string) (Accel, error) {
	fields := strings.Split(s, "+")
	if len(fields) < 2 {
		return Accel{}, fmt.Errorf("accelerator %q needs a modifier and a key", s)
	}

	var a Accel
	for _, f := range fields[:len(fields)-1] {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "ctrl", "control":
			a.Mods |= ModCtrl
		case "shift":
			a.Mods |= ModShift
		case "alt", "option", "opt":
			a.Mods |= ModAlt
		case "super", "cmd", "command", "win":
			a.Mods |= ModSuper
		default:
			return Accel{}, fmt.Errorf("unknown modifier %q in %q", f, s)
		}
	}

	key, err := normalizeKey(fields[len(fields)-1])
	if err != nil {
		return Accel{}, fmt.Errorf("accelerator %q: %w", s, err)
	}
	a.Key = key
	return a, nil
}

func normalizeKey(k string) (string, error) {
	k = strings.TrimSpace(k)
	switch {
	case strings.EqualFold(k, "space"):
		return "Space", nil
	case len(k) == 1 && (k[0] >= '0' && k[0] <= '9' || k[0] >= 'a' && k[0] <= 'z' || k[0] >= 'A' && k[0] <= 'Z'):
		return strings.ToUpper(k), nil
	case len(k) >= 2 && (k[0] == 'F' || k[0] == 'f'):
		var n int
		if _, err := fmt.Sscanf(k[1:], "%d", &n); err == nil && n >= 1 && n <= 12 && fmt.Sprint(n) == k[1:] {
			return fmt.Sprintf("F%d", n), nil
		}
	}
	return "", fmt.Errorf("unsupported key %q", k)
}
