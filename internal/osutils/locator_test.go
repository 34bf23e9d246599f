package osutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeWindows struct {
	active, foreground HWND
	owners             map[HWND][2]uint32 // thread, process
	pid                uint32
}

func (f *fakeWindows) ActiveWindow() HWND     { return f.active }
func (f *fakeWindows) ForegroundWindow() HWND { return f.foreground }
func (f *fakeWindows) CurrentProcessID() uint32 {
	return f.pid
}
func (f *fakeWindows) WindowThreadProcessID(hwnd HWND) (uint32, uint32) {
	o := f.owners[hwnd]
	return o[0], o[1]
}

func TestLocatePrefersActiveWindow(t *testing.T) {
	ws := &fakeWindows{
		active:     0x10,
		foreground: 0x20,
		owners:     map[HWND][2]uint32{0x10: {7, 42}, 0x20: {8, 42}},
		pid:        42,
	}
	hwnd, tid := NewLocator(ws).Locate()
	assert.Equal(t, HWND(0x10), hwnd)
	assert.Equal(t, uint32(7), tid)
}

func TestLocateFallsBackToForeground(t *testing.T) {
	ws := &fakeWindows{
		foreground: 0x20,
		owners:     map[HWND][2]uint32{0x20: {8, 42}},
		pid:        42,
	}
	hwnd, tid := NewLocator(ws).Locate()
	assert.Equal(t, HWND(0x20), hwnd)
	assert.Equal(t, uint32(8), tid)
}

func TestLocateRejectsForeignProcess(t *testing.T) {
	ws := &fakeWindows{
		foreground: 0x20,
		owners:     map[HWND][2]uint32{0x20: {8, 99}},
		pid:        42,
	}
	hwnd, tid := NewLocator(ws).Locate()
	assert.Zero(t, hwnd)
	assert.Zero(t, tid)
}

func TestLocateNoWindow(t *testing.T) {
	hwnd, tid := NewLocator(&fakeWindows{pid: 1}).Locate()
	assert.Zero(t, hwnd)
	assert.Zero(t, tid)
}

func TestRectClamp(t *testing.T) {
	r := Rect{Width: 800, Height: 600}
	assert.Equal(t, Point{0, 0}, r.Clamp(Point{-5, -1}))
	assert.Equal(t, Point{800, 600}, r.Clamp(Point{900, 601}))
	assert.Equal(t, Point{400, 300}, r.Center())
	assert.Equal(t, Rect{Left: 10, Top: 20, Width: 90, Height: 180}, RectFromBounds(10, 20, 100, 200))
}
