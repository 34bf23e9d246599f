//go:build windows

package host

import (
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/windows"

	"overlay/internal/hotkey"
	"overlay/internal/input"
	"overlay/internal/intercept"
	"overlay/internal/osutils"
	"overlay/internal/pipe"
)

// DefaultDeps returns the Win32 services for the current process.
func DefaultDeps(logger *zap.Logger) (Deps, error) {
	sys, err := osutils.NewSystem()
	if err != nil {
		return Deps{}, err
	}
	hooker, err := input.NewHooker()
	if err != nil {
		return Deps{}, err
	}
	platform, err := input.NewPlatform()
	if err != nil {
		return Deps{}, err
	}
	keys, err := hotkey.NewKeyState()
	if err != nil {
		return Deps{}, err
	}
	patcher, err := intercept.NewIATPatcher(0, "user32.dll")
	if err != nil {
		return Deps{}, err
	}

	shield, err := NewCursorShield(patcher, cursorStubs(), func() {
		frozenCursor.Store(packPoint(sys.CursorPos()))
	}, logger)
	if err != nil {
		return Deps{}, err
	}

	return Deps{
		Locator:     osutils.NewLocator(sys),
		Hooker:      hooker,
		Platform:    platform,
		Screen:      sys,
		Device:      sys,
		Keys:        keys,
		Patcher:     patcher,
		Trampolines: winTrampolines{},
		Shield:      shield,
		Presenter:   NewStatusPresenter(logger),
		Listen:      pipe.Listen,
		Logger:      logger,
	}, nil
}

// Callbacks from windows.NewCallback are never released, so each entry
// point gets one trampoline for the life of the process and Attach only
// swaps the closures it calls.
type trampoline struct {
	addr     uintptr
	before   atomic.Pointer[func()]
	original atomic.Pointer[func() uintptr]
}

var (
	trampolinesMu sync.Mutex
	trampolines   = map[string]*trampoline{}
)

type winTrampolines struct{}

func (winTrampolines) Replacement(name string, before func(), original func() uintptr) (uintptr, error) {
	trampolinesMu.Lock()
	defer trampolinesMu.Unlock()

	tr, ok := trampolines[name]
	if !ok {
		tr = &trampoline{}
		switch name {
		case "GetMessageA", "GetMessageW":
			tr.addr = windows.NewCallback(func(msg, hwnd, filterMin, filterMax uintptr) uintptr {
				return tr.call(msg, hwnd, filterMin, filterMax)
			})
		case "PeekMessageA", "PeekMessageW":
			tr.addr = windows.NewCallback(func(msg, hwnd, filterMin, filterMax, removeMsg uintptr) uintptr {
				return tr.call(msg, hwnd, filterMin, filterMax, removeMsg)
			})
		default:
			return 0, intercept.ErrImportNotFound
		}
		trampolines[name] = tr
	}
	tr.before.Store(&before)
	tr.original.Store(&original)
	return tr.addr, nil
}

func (tr *trampoline) call(args ...uintptr) uintptr {
	if before := tr.before.Load(); before != nil {
		(*before)()
	}
	orig := (*tr.original.Load())()
	ret, _, _ := syscall.SyscallN(orig, args...)
	return ret
}

// frozenCursor is what the host reads from GetCursorPos while shielded.
var frozenCursor atomic.Uint64

func packPoint(pt osutils.Point) uint64 {
	return uint64(uint32(pt.X)) | uint64(uint32(pt.Y))<<32
}

var (
	stubsOnce sync.Once
	stubs     map[string]uintptr
)

func cursorStubs() map[string]uintptr {
	stubsOnce.Do(func() {
		stubs = map[string]uintptr{
			"GetCursorPos": windows.NewCallback(func(p uintptr) uintptr {
				if p == 0 {
					return 0
				}
				v := frozenCursor.Load()
				pt := (*osutils.Point)(unsafe.Pointer(p))
				pt.X, pt.Y = int32(uint32(v)), int32(uint32(v>>32))
				return 1
			}),
			"SetCursorPos": windows.NewCallback(func(x, y uintptr) uintptr {
				return 1
			}),
		}
	})
	return stubs
}
