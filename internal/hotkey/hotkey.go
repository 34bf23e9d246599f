// Package hotkey detects the overlay's two-key toggle combination by polling
// live key state from the host's message thread.
package hotkey

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownKey is returned when a combo names a key outside the table
	ErrUnknownKey = errors.New("unknown key name")

	// ErrComboSize is returned when a combo does not hold exactly two keys
	ErrComboSize = errors.New("hotkey combo needs exactly two keys")
)

// DefaultCombo is Shift+Tab.
const DefaultCombo = "Shift+Tab"

// Combo holds up to two virtual-key codes. A zero slot is always satisfied.
type Combo [2]uint32

// Packed returns the combo as a single value, first key in the low byte.
func (c Combo) Packed() uint32 {
	return c[0]&0xFF | (c[1]&0xFF)<<8
}

// ComboFromPacked splits a value built by Packed.
func ComboFromPacked(v uint32) Combo {
	return Combo{v & 0xFF, v >> 8 & 0xFF}
}

// String renders the combo as "Shift+Tab" style text.
func (c Combo) String() string {
	var parts []string
	for i := len(c) - 1; i >= 0; i-- {
		if c[i] == 0 {
			continue
		}
		name := vkCodeToName(c[i])
		if name == "" {
			name = fmt.Sprintf("0x%02X", c[i])
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, "+")
}

// ParseCombo parses a hotkey string (e.g. "Shift+Tab", "Ctrl+F12"). An empty
// string yields the zero Combo, which never fires. A single key is rejected:
// its empty partner slot stays satisfied, so the release edge never happens.
func ParseCombo(s string) (Combo, error) {
	var c Combo
	if strings.TrimSpace(s) == "" {
		return c, nil
	}

	parts := strings.Split(strings.ToUpper(s), "+")
	if len(parts) != len(c) {
		return c, fmt.Errorf("%w: %q", ErrComboSize, s)
	}

	// Modifier first in text, stored in the high slot.
	for i, p := range parts {
		p = strings.TrimSpace(p)
		vk, ok := nameToVKCode(p)
		if !ok {
			return Combo{}, fmt.Errorf("%w: %q", ErrUnknownKey, p)
		}
		c[len(parts)-1-i] = vk
	}
	return c, nil
}

func nameToVKCode(name string) (uint32, bool) {
	switch name {
	case "CONTROL":
		return 0x11, true
	case "CMD":
		return 0x5B, true
	case "ESCAPE":
		return 0x1B, true
	}

	for vk := uint32(1); vk < 0xFF; vk++ {
		if vkCodeToName(vk) == name {
			return vk, true
		}
	}
	return 0, false
}

func vkCodeToName(vk uint32) string {
	// Modifier keys
	switch vk {
	case 0x11, 0xA2, 0xA3:
		return "CTRL"
	case 0x12, 0xA4, 0xA5:
		return "ALT"
	case 0x10, 0xA0, 0xA1:
		return "SHIFT"
	case 0x5B, 0x5C:
		return "WIN"
	case 0x20:
		return "SPACE"
	case 0x0D:
		return "ENTER"
	case 0x1B:
		return "ESC"
	case 0x08:
		return "BACKSPACE"
	case 0x09:
		return "TAB"
	case 0x14:
		return "CAPSLOCK"
	case 0x21:
		return "PAGEUP"
	case 0x22:
		return "PAGEDOWN"
	case 0x23:
		return "END"
	case 0x24:
		return "HOME"
	case 0x25:
		return "LEFT"
	case 0x26:
		return "UP"
	case 0x27:
		return "RIGHT"
	case 0x28:
		return "DOWN"
	case 0x2C:
		return "PRINTSCREEN"
	case 0x2D:
		return "INSERT"
	case 0x2E:
		return "DELETE"
	case 0x13:
		return "PAUSE"
	case 0x91:
		return "SCROLLLOCK"
	case 0xC0:
		return "TILDE"
	}

	// Letters A-Z
	if vk >= 0x41 && vk <= 0x5A {
		return string(rune(vk))
	}

	// Numbers 0-9
	if vk >= 0x30 && vk <= 0x39 {
		return string(rune(vk))
	}

	// F1-F12
	if vk >= 0x70 && vk <= 0x7B {
		return fmt.Sprintf("F%d", vk-0x6F)
	}

	return ""
}
