//go:build windows

package input

import (
	"unsafe"

	"golang.org/x/sys/windows"

	"overlay/internal/osutils"
)

var (
	procIsChild          = user32.NewProc("IsChild")
	procPostMessageW     = user32.NewProc("PostMessageW")
	procTranslateMessage = user32.NewProc("TranslateMessage")
)

// WindowsPlatform is the Win32 message-queue implementation of Platform.
type WindowsPlatform struct{}

// NewPlatform returns the Win32 message-queue bindings.
func NewPlatform() (*WindowsPlatform, error) {
	if err := user32.Load(); err != nil {
		return nil, err
	}
	return &WindowsPlatform{}, nil
}

// CurrentThreadID implements Platform.
func (WindowsPlatform) CurrentThreadID() uint32 {
	return windows.GetCurrentThreadId()
}

// IsChild implements Platform.
func (WindowsPlatform) IsChild(parent, child osutils.HWND) bool {
	ret, _, _ := procIsChild.Call(uintptr(parent), uintptr(child))
	return ret != 0
}

// PostMessage implements Platform.
func (WindowsPlatform) PostMessage(hwnd osutils.HWND, id uint32, wParam, lParam uintptr) error {
	ret, _, err := procPostMessageW.Call(uintptr(hwnd), uintptr(id), wParam, lParam)
	if ret == 0 {
		return err
	}
	return nil
}

// TranslateMessage implements Platform.
func (WindowsPlatform) TranslateMessage(msg *Message) {
	procTranslateMessage.Call(uintptr(unsafe.Pointer(msg)))
}
