package cursor

import (
	"sync/atomic"

	"overlay/internal/osutils"
)

// Device reads and positions the OS cursor in screen coordinates.
type Device interface {
	CursorPos() osutils.Point
	SetCursorPos(pt osutils.Point)
}

// DefaultReference is the client-space point the OS cursor is pinned to.
var DefaultReference = osutils.Point{X: 100, Y: 100}

// Virtualizer pins the OS cursor to a reference point and accumulates the
// drift it observes into a virtual position clamped to the render surface.
//
// The position is only touched from the host's message thread; the surface
// rectangle may be replaced from any goroutine.
type Virtualizer struct {
	screen    Screen
	dev       Device
	reference osutils.Point
	pos       osutils.Point
	surface   atomic.Pointer[osutils.Rect]
}

// NewVirtualizer creates a virtualizer whose virtual cursor starts at reference.
func NewVirtualizer(screen Screen, dev Device, reference osutils.Point) *Virtualizer {
	v := &Virtualizer{
		screen:    screen,
		dev:       dev,
		reference: reference,
		pos:       reference,
	}
	v.surface.Store(&osutils.Rect{})
	return v
}

// SetSurface replaces the render-surface bounds used for clamping.
func (v *Virtualizer) SetSurface(r osutils.Rect) {
	v.surface.Store(&r)
}

// Surface returns the current render-surface bounds.
func (v *Virtualizer) Surface() osutils.Rect {
	return *v.surface.Load()
}

// Reference returns the client-space pin point.
func (v *Virtualizer) Reference() osutils.Point {
	return v.reference
}

// Position returns the current virtual cursor.
func (v *Virtualizer) Position() osutils.Point {
	return v.pos
}

// Reset centers the virtual cursor on the surface and pins the OS cursor
// back to the reference point of hwnd.
func (v *Virtualizer) Reset(hwnd osutils.HWND) {
	v.pos = v.Surface().Center()
	v.dev.SetCursorPos(v.screen.ClientToScreen(hwnd, v.reference))
}

// Virtualize runs one step for a mouse message destined to hwnd. move must
// be true for pure motion messages. It returns the clamped virtual position
// and whether the message should be forwarded; a pure move is only forwarded
// when the OS cursor actually drifted.
func (v *Virtualizer) Virtualize(hwnd osutils.HWND, move bool) (osutils.Point, bool) {
	expected := v.screen.ClientToScreen(hwnd, v.reference)
	actual := v.dev.CursorPos()

	moved := actual != expected
	if moved {
		v.dev.SetCursorPos(expected)
	}

	if !moved && move {
		return v.pos, false
	}

	v.pos = v.Surface().Clamp(v.pos.Add(actual.Sub(expected)))
	return v.pos, true
}
