package input

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"overlay/internal/cursor"
	"overlay/internal/hotkey"
	"overlay/internal/osutils"
)

// State is the hook installation state.
type State int

const (
	Uninstalled State = iota
	Installed
)

func (s State) String() string {
	if s == Installed {
		return "installed"
	}
	return "uninstalled"
}

// Options wires an Engine to its collaborators.
type Options struct {
	Locator  WindowLocator
	Hooker   Hooker
	Platform Platform
	Screen   cursor.Screen
	Device   cursor.Device
	Keys     hotkey.KeyState
	Consumer Consumer

	// Shield is optional.
	Shield Shield

	Combo     hotkey.Combo
	Cooldown  time.Duration
	Reference osutils.Point
	Windowed  bool

	Logger *zap.Logger
	Now    func() time.Time
}

// Engine owns the host-window hook, the virtual cursor and the hotkey state
// for one attached host. Everything except the capture flag, display mode and
// surface rectangle is touched only from the host's message thread.
type Engine struct {
	log      *zap.Logger
	locator  WindowLocator
	hooker   Hooker
	platform Platform
	consumer Consumer
	shield   Shield
	now      func() time.Time

	mapper   *cursor.Mapper
	cursor   *cursor.Virtualizer
	detector *hotkey.Detector

	// mu guards install/uninstall; the message path only ever try-locks it.
	mu       sync.Mutex
	hook     HookHandle
	threadID uint32
	target   atomic.Uintptr

	capture  atomic.Bool
	shielded bool

	installWarn *rate.Limiter
}

// NewEngine creates an engine in the Uninstalled state.
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	reference := opts.Reference
	if reference == (osutils.Point{}) {
		reference = cursor.DefaultReference
	}

	return &Engine{
		log:         logger.Named("input"),
		locator:     opts.Locator,
		hooker:      opts.Hooker,
		platform:    opts.Platform,
		consumer:    opts.Consumer,
		shield:      opts.Shield,
		now:         now,
		mapper:      cursor.NewMapper(opts.Screen, opts.Windowed),
		cursor:      cursor.NewVirtualizer(opts.Screen, opts.Device, reference),
		detector:    hotkey.NewDetector(opts.Keys, opts.Combo, opts.Cooldown),
		installWarn: rate.NewLimiter(rate.Every(5*time.Second), 1),
	}
}

// State reports whether a hook is currently installed.
func (e *Engine) State() State {
	if e.Target() != 0 {
		return Installed
	}
	return Uninstalled
}

// Target returns the hooked host window, or 0.
func (e *Engine) Target() osutils.HWND {
	return osutils.HWND(e.target.Load())
}

// Capturing reports whether input is routed to the overlay.
func (e *Engine) Capturing() bool {
	return e.capture.Load()
}

// Shielded reports whether host cursor suppression is on.
func (e *Engine) Shielded() bool {
	return e.shielded
}

// Cursor returns the virtual cursor state.
func (e *Engine) Cursor() *cursor.Virtualizer {
	return e.cursor
}

// SetWindowed selects windowed (true) or exclusive display mode.
func (e *Engine) SetWindowed(windowed bool) {
	e.mapper.SetWindowed(windowed)
}

// Windowed reports whether the engine is in windowed display mode.
func (e *Engine) Windowed() bool {
	return e.mapper.Windowed()
}

// SetTransRect records the host content bounds and the render-surface bounds.
func (e *Engine) SetTransRect(game, back osutils.Rect) {
	e.cursor.SetSurface(back)
	e.log.Debug("Surface updated",
		zap.Int32("game_width", game.Width), zap.Int32("game_height", game.Height),
		zap.Int32("back_width", back.Width), zap.Int32("back_height", back.Height))
}

// SetCapture routes input to the overlay (true) or back to the host. On a
// change the shield toggle is posted to the host window so the shield is
// switched from the message thread.
func (e *Engine) SetCapture(capture bool) {
	if e.capture.Swap(capture) == capture {
		return
	}

	target := e.Target()
	if target == 0 {
		return
	}
	var enable uintptr
	if capture {
		enable = 1
	}
	if err := e.platform.PostMessage(target, ControlMessage, WParamShield, enable); err != nil {
		e.log.Warn("Failed to post shield toggle", zap.Bool("capture", capture), zap.Error(err))
	}
}

// Cycle runs once each time the host asks for its next message. It follows
// the host window, re-hooking when it changes, and polls the hotkey.
func (e *Engine) Cycle() {
	hwnd, threadID := e.locator.Locate()
	if hwnd == 0 || threadID != e.platform.CurrentThreadID() {
		return
	}

	if hwnd != e.Target() {
		if !e.mu.TryLock() {
			return
		}
		ok := e.retarget(hwnd, threadID)
		e.mu.Unlock()
		if !ok {
			return
		}
	}

	if e.detector.Poll(e.now()) {
		if err := e.platform.PostMessage(hwnd, ControlMessage, WParamHotKey, 0); err != nil {
			e.log.Warn("Failed to post hotkey", zap.Error(err))
		}
	}
}

// retarget replaces the current hook with one on hwnd's thread. Must hold mu.
func (e *Engine) retarget(hwnd osutils.HWND, threadID uint32) bool {
	e.uninstall()

	h, err := e.hooker.Install(threadID, e.HookProc)
	if err != nil {
		if e.installWarn.Allow() {
			e.log.Warn("Hook install failed, retrying on next message",
				zap.Uintptr("hwnd", uintptr(hwnd)), zap.Uint32("thread", threadID), zap.Error(err))
		}
		return false
	}

	e.hook = h
	e.threadID = threadID
	e.target.Store(uintptr(hwnd))
	e.log.Info("Hook installed", zap.Uintptr("hwnd", uintptr(hwnd)), zap.Uint32("thread", threadID))

	// Capture may have been switched on before any window was hooked, or on
	// a window that is gone; bring the shield up on the new target.
	if e.capture.Load() {
		if err := e.platform.PostMessage(hwnd, ControlMessage, WParamShield, 1); err != nil {
			e.log.Warn("Failed to post shield toggle", zap.Bool("capture", true), zap.Error(err))
		}
	}
	return true
}

// uninstall removes the current hook, if any. Must hold mu.
func (e *Engine) uninstall() {
	if e.hook == 0 {
		return
	}
	if err := e.hooker.Uninstall(e.hook); err != nil {
		e.log.Warn("Hook uninstall failed", zap.Error(err))
	}
	e.log.Info("Hook removed", zap.Uintptr("hwnd", e.target.Load()))
	e.hook = 0
	e.threadID = 0
	e.target.Store(0)
}

// Close removes the hook. The engine may be reattached by a later Cycle.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.uninstall()
	return nil
}

// HookProc decides what happens to one message. On the peek pass it only
// decides whether to swallow; on the remove pass it also acts and forwards.
func (e *Engine) HookProc(msg *Message, remove bool) bool {
	target := e.Target()
	if target == 0 || (msg.Hwnd != target && !e.platform.IsChild(target, msg.Hwnd)) {
		return false
	}

	switch {
	case msg.ID == ControlMessage && msg.WParam == WParamShield:
		if remove {
			e.setShield(target, msg.LParam == 1)
		}

	case msg.ID == ControlMessage && msg.WParam == WParamHotKey:
		if remove {
			e.consumer.HandleHookMessage(*msg)
		}

	case IsKeyboard(msg.ID):
		if !e.capture.Load() {
			return false
		}
		if remove {
			e.platform.TranslateMessage(msg)
			e.consumer.HandleHookMessage(*msg)
		}

	case IsMouse(msg.ID):
		if !e.capture.Load() {
			return false
		}
		remapped := *msg
		remapped.SetPoint(e.mapper.Remap(target, IsWheel(msg.ID), msg.Point()))
		if remove {
			e.forwardMouse(target, remapped)
		}

	case IsNonClientMouse(msg.ID):
		if !e.capture.Load() {
			return false
		}
		// Windowed hosts keep their caption drags; only exclusive mode forwards.
		if remove && !e.mapper.Windowed() {
			e.forwardMouse(target, *msg)
		}

	default:
		return false
	}

	msg.Swallow()
	return true
}

func (e *Engine) forwardMouse(target osutils.HWND, msg Message) {
	pos, ok := e.cursor.Virtualize(target, msg.ID == WM_MOUSEMOVE)
	if !ok {
		return
	}
	msg.SetPoint(pos)
	e.consumer.HandleHookMessage(msg)
}

func (e *Engine) setShield(target osutils.HWND, enable bool) {
	e.shielded = enable
	if enable {
		if e.shield != nil {
			e.shield.StartShield()
		}
		e.cursor.Reset(target)
		return
	}
	if e.shield != nil {
		e.shield.EndShield()
	}
}
