//go:build windows

package osutils

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	procGetActiveWindow          = user32.NewProc("GetActiveWindow")
	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procClientToScreen           = user32.NewProc("ClientToScreen")
	procScreenToClient           = user32.NewProc("ScreenToClient")
	procGetCursorPos             = user32.NewProc("GetCursorPos")
	procSetCursorPos             = user32.NewProc("SetCursorPos")
)

// System is the Win32 implementation of the window, screen and cursor queries.
type System struct{}

// NewSystem returns the Win32 system bindings.
func NewSystem() (*System, error) {
	if err := user32.Load(); err != nil {
		return nil, err
	}
	return &System{}, nil
}

// ActiveWindow implements WindowSystem.
func (s *System) ActiveWindow() HWND {
	ret, _, _ := procGetActiveWindow.Call()
	return HWND(ret)
}

// ForegroundWindow implements WindowSystem.
func (s *System) ForegroundWindow() HWND {
	ret, _, _ := procGetForegroundWindow.Call()
	return HWND(ret)
}

// WindowThreadProcessID implements WindowSystem.
func (s *System) WindowThreadProcessID(hwnd HWND) (uint32, uint32) {
	var pid uint32
	tid, _, _ := procGetWindowThreadProcessId.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&pid)))
	return uint32(tid), pid
}

// CurrentProcessID implements WindowSystem.
func (s *System) CurrentProcessID() uint32 {
	return windows.GetCurrentProcessId()
}

// ClientToScreen maps a client point of hwnd to screen coordinates.
func (s *System) ClientToScreen(hwnd HWND, pt Point) Point {
	procClientToScreen.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&pt)))
	return pt
}

// ScreenToClient maps a screen point to the client area of hwnd.
func (s *System) ScreenToClient(hwnd HWND, pt Point) Point {
	procScreenToClient.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&pt)))
	return pt
}

// CursorPos returns the OS cursor in screen coordinates.
func (s *System) CursorPos() Point {
	var pt Point
	procGetCursorPos.Call(uintptr(unsafe.Pointer(&pt)))
	return pt
}

// SetCursorPos moves the OS cursor to pt (screen coordinates).
func (s *System) SetCursorPos(pt Point) {
	procSetCursorPos.Call(uintptr(pt.X), uintptr(pt.Y))
}
