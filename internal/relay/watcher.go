package relay

import (
	"sync"

	"overlay/internal/protocol"
)

// Renderer is the surface a watcher drives. Session implements it.
type Renderer interface {
	Display(show, shield bool) error
	Redraw(ev protocol.RedrawEvent) error
	Width() uint32
	Height() uint32
	AddWatcher(w Watcher)
	RemoveWatcher(w Watcher)
}

// Watcher observes events relayed from the host.
type Watcher interface {
	OnHotKey(r Renderer)
	OnMouseEvent(r Renderer, e protocol.Mouse)
	OnKeyEvent(r Renderer, e protocol.Key)
	OnIdle(r Renderer)
}

// WatcherFuncs adapts optional callbacks to Watcher. Register it by pointer.
type WatcherFuncs struct {
	HotKey func(r Renderer)
	Mouse  func(r Renderer, e protocol.Mouse)
	Key    func(r Renderer, e protocol.Key)
	Idle   func(r Renderer)
}

func (f *WatcherFuncs) OnHotKey(r Renderer) {
	if f.HotKey != nil {
		f.HotKey(r)
	}
}

func (f *WatcherFuncs) OnMouseEvent(r Renderer, e protocol.Mouse) {
	if f.Mouse != nil {
		f.Mouse(r, e)
	}
}

func (f *WatcherFuncs) OnKeyEvent(r Renderer, e protocol.Key) {
	if f.Key != nil {
		f.Key(r, e)
	}
}

func (f *WatcherFuncs) OnIdle(r Renderer) {
	if f.Idle != nil {
		f.Idle(r)
	}
}

// WatcherSet is an insertion-ordered set of watchers compared by identity.
// Watchers must be comparable; pointer types always are.
type WatcherSet struct {
	mu       sync.Mutex
	watchers []Watcher
}

// Add inserts w unless it is already present.
func (s *WatcherSet) Add(w Watcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, have := range s.watchers {
		if have == w {
			return
		}
	}
	s.watchers = append(s.watchers, w)
}

// Remove deletes w if present.
func (s *WatcherSet) Remove(w Watcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, have := range s.watchers {
		if have == w {
			s.watchers = append(s.watchers[:i:i], s.watchers[i+1:]...)
			return
		}
	}
}

// Len returns the number of watchers.
func (s *WatcherSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

// Snapshot returns the watchers in insertion order. Watchers added or
// removed while a snapshot is iterated take effect on the next one.
func (s *WatcherSet) Snapshot() []Watcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watchers
}
