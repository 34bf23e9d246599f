//go:build windows

package hotkey

import (
	"golang.org/x/sys/windows"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procGetAsyncKeyState = user32.NewProc("GetAsyncKeyState")
)

type asyncKeyState struct{}

// NewKeyState returns the live GetAsyncKeyState source.
func NewKeyState() (KeyState, error) {
	if err := procGetAsyncKeyState.Find(); err != nil {
		return nil, err
	}
	return asyncKeyState{}, nil
}

func (asyncKeyState) IsDown(vk uint32) bool {
	state, _, _ := procGetAsyncKeyState.Call(uintptr(vk))
	return state&0x8000 != 0
}
