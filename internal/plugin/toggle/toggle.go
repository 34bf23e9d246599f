// Package toggle is the built-in plugin that shows and hides the overlay
// when the hotkey fires.
package toggle

import (
	"sync"

	"go.uber.org/zap"

	"overlay/internal/plugin"
	"overlay/internal/relay"
)

// Name is the module name used in configuration.
const Name = "toggle"

// Default is the instance registered with the plugin catalog.
var Default = New()

func init() {
	if err := plugin.Register(Module(Default)); err != nil {
		panic(err)
	}
}

// Toggle flips the overlay between hidden and shown-with-input on each hotkey.
type Toggle struct {
	relay.WatcherFuncs

	mu    sync.Mutex
	shown bool
	log   *zap.Logger
}

// New creates a hidden toggle.
func New() *Toggle {
	t := &Toggle{}
	t.HotKey = t.flip
	return t
}

// SetLogger sets where display failures are reported. Without one the
// global zap logger is used.
func (t *Toggle) SetLogger(logger *zap.Logger) {
	t.mu.Lock()
	t.log = logger.Named(Name)
	t.mu.Unlock()
}

func (t *Toggle) logger() *zap.Logger {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.log == nil {
		return zap.L().Named(Name)
	}
	return t.log
}

// Shown reports the current state.
func (t *Toggle) Shown() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.shown
}

// Set shows or hides the overlay directly, e.g. from the tray.
func (t *Toggle) Set(r relay.Renderer, shown bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := r.Display(shown, shown); err != nil {
		return err
	}
	t.shown = shown
	return nil
}

func (t *Toggle) flip(r relay.Renderer) {
	t.mu.Lock()
	next := !t.shown
	t.mu.Unlock()
	if err := t.Set(r, next); err != nil {
		t.logger().Warn("Failed to toggle overlay", zap.Bool("show", next), zap.Error(err))
	}
}

// Module wraps t as a plugin module.
func Module(t *Toggle) plugin.Module {
	return plugin.Module{
		Name: Name,
		Load: func(r relay.Renderer) error {
			r.AddWatcher(t)
			return t.Set(r, false)
		},
		Unload: func(r relay.Renderer) {
			if err := t.Set(r, false); err != nil {
				t.logger().Warn("Failed to hide overlay on unload", zap.Error(err))
			}
			r.RemoveWatcher(t)
		},
	}
}
