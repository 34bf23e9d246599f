package osutils

// WindowSystem answers the window ownership queries the locator needs.
type WindowSystem interface {
	// ActiveWindow returns the active window attached to the calling thread's queue, or 0.
	ActiveWindow() HWND

	// ForegroundWindow returns the desktop foreground window, or 0.
	ForegroundWindow() HWND

	// WindowThreadProcessID returns the thread and process that created hwnd.
	WindowThreadProcessID(hwnd HWND) (threadID, processID uint32)

	// CurrentProcessID returns the id of this process.
	CurrentProcessID() uint32
}

// Locator finds the host window owned by the current process.
type Locator struct {
	ws WindowSystem
}

// NewLocator creates a locator backed by ws.
func NewLocator(ws WindowSystem) *Locator {
	return &Locator{ws: ws}
}

// Locate returns the host window and the thread that owns it. The active
// window is preferred over the foreground window; windows belonging to other
// processes are rejected and reported as (0, 0).
func (l *Locator) Locate() (HWND, uint32) {
	hwnd := l.ws.ActiveWindow()
	if hwnd == 0 {
		hwnd = l.ws.ForegroundWindow()
	}
	if hwnd == 0 {
		return 0, 0
	}

	threadID, pid := l.ws.WindowThreadProcessID(hwnd)
	if pid != l.ws.CurrentProcessID() {
		return 0, 0
	}
	return hwnd, threadID
}
