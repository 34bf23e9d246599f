//go:build !windows

package hotkey

import "errors"

// NewKeyState is not available on this platform.
func NewKeyState() (KeyState, error) {
	return nil, errors.New("hotkey: live key state not supported on this platform")
}
