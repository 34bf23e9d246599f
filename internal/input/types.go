// Package input intercepts the host window's message queue and routes
// keyboard and mouse input to the overlay while capture is active.
package input

import "overlay/internal/osutils"

// Window message ranges and ids the engine inspects.
const (
	WM_NULL            = 0x0000
	WM_NCMOUSEMOVE     = 0x00A0
	WM_NCXBUTTONDBLCLK = 0x00AD
	WM_KEYFIRST        = 0x0100
	WM_KEYLAST         = 0x0109
	WM_KEYDOWN         = 0x0100
	WM_CHAR            = 0x0102
	WM_MOUSEFIRST      = 0x0200
	WM_MOUSEMOVE       = 0x0200
	WM_LBUTTONDOWN     = 0x0201
	WM_LBUTTONUP       = 0x0202
	WM_MOUSEWHEEL      = 0x020A
	WM_MOUSEHWHEEL     = 0x020E
	WM_MOUSELAST       = 0x020E
	WM_USER            = 0x0400
)

// ControlMessage is the private message id posted to the host window. Its
// wParam selects the control action.
const ControlMessage = WM_USER + 0x1009

// Control actions carried in ControlMessage's wParam.
const (
	WParamShield uintptr = 1 // lParam 1 enables the shield, 0 disables it
	WParamHotKey uintptr = 2
)

// PM_REMOVE is set in the hook's wParam on the pass that removes the message.
const PM_REMOVE = 0x0001

// Message mirrors the Win32 MSG layout so hook callbacks can use the OS
// structure in place.
type Message struct {
	Hwnd    osutils.HWND
	ID      uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      osutils.Point
	private uint32
}

// Point decodes the signed x/y pair packed into LParam.
func (m *Message) Point() osutils.Point {
	return osutils.Point{
		X: int32(int16(uint16(m.LParam))),
		Y: int32(int16(uint16(m.LParam >> 16))),
	}
}

// SetPoint packs pt into LParam.
func (m *Message) SetPoint(pt osutils.Point) {
	m.LParam = uintptr(uint32(uint16(int16(pt.X))) | uint32(uint16(int16(pt.Y)))<<16)
}

// Swallow turns the message into a no-op for the host.
func (m *Message) Swallow() {
	m.ID = WM_NULL
}

// IsKeyboard reports whether id is in the keyboard message range.
func IsKeyboard(id uint32) bool {
	return id >= WM_KEYFIRST && id <= WM_KEYLAST
}

// IsMouse reports whether id is in the client mouse message range.
func IsMouse(id uint32) bool {
	return id >= WM_MOUSEFIRST && id <= WM_MOUSELAST
}

// IsNonClientMouse reports whether id is a non-client-area mouse message.
func IsNonClientMouse(id uint32) bool {
	return id >= WM_NCMOUSEMOVE && id <= WM_NCXBUTTONDBLCLK
}

// IsWheel reports whether id is a wheel message. Wheel messages carry screen
// coordinates.
func IsWheel(id uint32) bool {
	return id == WM_MOUSEWHEEL || id == WM_MOUSEHWHEEL
}

// HookHandle identifies an installed message hook.
type HookHandle uintptr

// HookProc is called for each hooked message, once with remove=false when the
// host peeks at it and again with remove=true when it takes it off the
// queue. Returning true means the message was swallowed.
type HookProc func(msg *Message, remove bool) bool

// Hooker installs a message hook on one thread.
type Hooker interface {
	Install(threadID uint32, proc HookProc) (HookHandle, error)
	Uninstall(h HookHandle) error
}

// Platform is the set of message-queue services the engine calls while
// handling a message.
type Platform interface {
	CurrentThreadID() uint32
	IsChild(parent, child osutils.HWND) bool
	PostMessage(hwnd osutils.HWND, id uint32, wParam, lParam uintptr) error
	TranslateMessage(msg *Message)
}

// Consumer receives forwarded input. It runs on the host's message thread
// and must not block.
type Consumer interface {
	HandleHookMessage(msg Message)
}

// Shield hides OS cursor movement from the host while the overlay owns the
// cursor.
type Shield interface {
	StartShield()
	EndShield()
}

// WindowLocator finds the host window and its owning thread.
type WindowLocator interface {
	Locate() (osutils.HWND, uint32)
}
