// Package cursor remaps hooked mouse coordinates and keeps the overlay's
// virtual cursor decoupled from the host's OS cursor.
package cursor

import (
	"sync/atomic"

	"overlay/internal/osutils"
)

// Screen converts points between a window's client area and the screen.
type Screen interface {
	ClientToScreen(hwnd osutils.HWND, pt osutils.Point) osutils.Point
	ScreenToClient(hwnd osutils.HWND, pt osutils.Point) osutils.Point
}

// Mapper normalizes mouse message coordinates for the current display mode.
//
// Wheel messages always arrive in screen coordinates and everything else in
// client coordinates. In windowed mode the overlay works in client space, so
// only wheel messages are converted. In exclusive mode the host owns the whole
// screen and every non-wheel message is converted to screen space instead.
type Mapper struct {
	screen   Screen
	windowed atomic.Bool
}

// NewMapper creates a mapper for the given display mode.
func NewMapper(screen Screen, windowed bool) *Mapper {
	m := &Mapper{screen: screen}
	m.windowed.Store(windowed)
	return m
}

// SetWindowed switches between windowed and exclusive display mode.
func (m *Mapper) SetWindowed(windowed bool) {
	m.windowed.Store(windowed)
}

// Windowed reports the current display mode.
func (m *Mapper) Windowed() bool {
	return m.windowed.Load()
}

// Remap converts pt, taken from a message destined to hwnd, into the
// coordinate space the overlay expects.
func (m *Mapper) Remap(hwnd osutils.HWND, wheel bool, pt osutils.Point) osutils.Point {
	if m.windowed.Load() {
		if wheel {
			return m.screen.ScreenToClient(hwnd, pt)
		}
		return pt
	}
	if !wheel {
		return m.screen.ClientToScreen(hwnd, pt)
	}
	return pt
}
