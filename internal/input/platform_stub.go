//go:build !windows

package input

import (
	"errors"

	"overlay/internal/osutils"
)

// ErrHookInstall is returned when the OS refuses the message hook.
var ErrHookInstall = errors.New("input: message hooks are unavailable on this platform")

// WindowsHooker is unavailable off Windows.
type WindowsHooker struct{}

// NewHooker always fails off Windows.
func NewHooker() (*WindowsHooker, error) {
	return nil, osutils.ErrUnsupportedPlatform
}

func (WindowsHooker) Install(uint32, HookProc) (HookHandle, error) { return 0, ErrHookInstall }
func (WindowsHooker) Uninstall(HookHandle) error                   { return nil }

// WindowsPlatform is unavailable off Windows.
type WindowsPlatform struct{}

// NewPlatform always fails off Windows.
func NewPlatform() (*WindowsPlatform, error) {
	return nil, osutils.ErrUnsupportedPlatform
}

func (WindowsPlatform) CurrentThreadID() uint32                                  { return 0 }
func (WindowsPlatform) IsChild(osutils.HWND, osutils.HWND) bool                  { return false }
func (WindowsPlatform) PostMessage(osutils.HWND, uint32, uintptr, uintptr) error { return ErrHookInstall }
func (WindowsPlatform) TranslateMessage(*Message)                                {}
