//go:build !windows

package osutils

// System is unavailable outside Windows.
type System struct{}

// NewSystem reports that no window system bindings exist on this platform.
func NewSystem() (*System, error) {
	return nil, ErrUnsupportedPlatform
}

func (s *System) ActiveWindow() HWND                          { return 0 }
func (s *System) ForegroundWindow() HWND                      { return 0 }
func (s *System) WindowThreadProcessID(HWND) (uint32, uint32) { return 0, 0 }
func (s *System) CurrentProcessID() uint32                    { return 0 }
func (s *System) ClientToScreen(_ HWND, pt Point) Point       { return pt }
func (s *System) ScreenToClient(_ HWND, pt Point) Point       { return pt }
func (s *System) CursorPos() Point                            { return Point{} }
func (s *System) SetCursorPos(Point)                          {}
