//go:build windows

package input

import (
	"errors"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

const whGetMessage = 3

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
)

// ErrHookInstall is returned when the OS refuses the message hook.
var ErrHookInstall = errors.New("input: SetWindowsHookEx failed")

// Callbacks created by windows.NewCallback are never freed, so one trampoline
// serves every hook and dispatches on the handle it was installed with.
var (
	getMsgOnce     sync.Once
	getMsgCallback uintptr

	procsMu sync.RWMutex
	procs   = map[HookHandle]HookProc{}
	// active is the most recently installed hook; the OS does not tell the
	// callback which hook fired.
	active HookHandle
)

func getMsgProc(code, wParam, lParam uintptr) uintptr {
	if int32(code) >= 0 && lParam != 0 {
		procsMu.RLock()
		h := active
		proc := procs[h]
		procsMu.RUnlock()

		if proc != nil {
			msg := (*Message)(unsafe.Pointer(lParam))
			if proc(msg, wParam&PM_REMOVE != 0) {
				return 0
			}
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, code, wParam, lParam)
	return ret
}

// WindowsHooker installs WH_GETMESSAGE hooks.
type WindowsHooker struct{}

// NewHooker returns the Win32 hook installer.
func NewHooker() (*WindowsHooker, error) {
	if err := user32.Load(); err != nil {
		return nil, err
	}
	getMsgOnce.Do(func() {
		getMsgCallback = windows.NewCallback(getMsgProc)
	})
	return &WindowsHooker{}, nil
}

// Install implements Hooker.
func (WindowsHooker) Install(threadID uint32, proc HookProc) (HookHandle, error) {
	ret, _, err := procSetWindowsHookExW.Call(whGetMessage, getMsgCallback, 0, uintptr(threadID))
	if ret == 0 {
		return 0, errors.Join(ErrHookInstall, err)
	}
	h := HookHandle(ret)

	procsMu.Lock()
	procs[h] = proc
	active = h
	procsMu.Unlock()
	return h, nil
}

// Uninstall implements Hooker.
func (WindowsHooker) Uninstall(h HookHandle) error {
	procsMu.Lock()
	delete(procs, h)
	if active == h {
		active = 0
	}
	procsMu.Unlock()

	ret, _, err := procUnhookWindowsHookEx.Call(uintptr(h))
	if ret == 0 {
		return err
	}
	return nil
}
