// Package relay moves overlay events between the host hook and the
// renderer over a pipe channel and fans them out to watchers.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"overlay/internal/pipe"
	"overlay/internal/protocol"
)

// DefaultIdleInterval is the renderer pump period.
const DefaultIdleInterval = 30 * time.Millisecond

// Transport is one end of the overlay channel. *pipe.Conn implements it.
type Transport interface {
	Push(frame []byte) error
	Pull() (protocol.Frame, error)
	Close() error
}

// SessionOptions configures a renderer Session.
type SessionOptions struct {
	Width        uint32
	Height       uint32
	IdleInterval time.Duration
	Logger       *zap.Logger
}

// Session is the renderer end of the channel. It encodes status and paint
// frames for the host and dispatches inbound input to its watchers.
type Session struct {
	id     string
	t      Transport
	log    *zap.Logger
	width  uint32
	height uint32
	idle   time.Duration

	encMu sync.Mutex
	enc   *protocol.Encoder

	watchers WatcherSet
	running  atomic.Bool
}

// NewSession binds a session to an open transport and tells the host the
// surface size.
func NewSession(t Transport, opts SessionOptions) (*Session, error) {
	if opts.Width == 0 || opts.Height == 0 {
		return nil, fmt.Errorf("%w: surface %dx%d", ErrInvalidParams, opts.Width, opts.Height)
	}
	if opts.IdleInterval <= 0 {
		opts.IdleInterval = DefaultIdleInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	id := uuid.NewString()
	s := &Session{
		id:     id,
		t:      t,
		log:    logger.Named("relay").With(zap.String("session", id)),
		width:  opts.Width,
		height: opts.Height,
		idle:   opts.IdleInterval,
		enc:    protocol.NewEncoder(),
	}
	if err := t.Push(s.enc.EncodeSurface(protocol.Surface{Width: s.width, Height: s.height})); err != nil {
		return nil, fmt.Errorf("%w: announce surface: %v", ErrPipe, err)
	}
	return s, nil
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// Width returns the render surface width.
func (s *Session) Width() uint32 { return s.width }

// Height returns the render surface height.
func (s *Session) Height() uint32 { return s.height }

// AddWatcher registers w. Adding the same watcher twice has no effect.
func (s *Session) AddWatcher(w Watcher) { s.watchers.Add(w) }

// RemoveWatcher unregisters w.
func (s *Session) RemoveWatcher(w Watcher) { s.watchers.Remove(w) }

// Watchers returns the number of registered watchers.
func (s *Session) Watchers() int { return s.watchers.Len() }

// Display tells the host whether the overlay is visible and whether it owns
// the input.
func (s *Session) Display(show, shield bool) error {
	s.encMu.Lock()
	defer s.encMu.Unlock()
	if err := s.t.Push(s.enc.EncodeStatus(protocol.Status{Show: show, Shield: shield})); err != nil {
		return fmt.Errorf("%w: %v", ErrPipe, err)
	}
	s.log.Debug("Display", zap.Bool("show", show), zap.Bool("shield", shield))
	return nil
}

// Redraw sends the dirty rectangle of ev to the host.
func (s *Session) Redraw(ev protocol.RedrawEvent) error {
	s.encMu.Lock()
	defer s.encMu.Unlock()
	frame, err := s.enc.EncodePaint(ev)
	if err != nil {
		return err
	}
	if err := s.t.Push(frame); err != nil {
		return fmt.Errorf("%w: %v", ErrPipe, err)
	}
	return nil
}

// Update dispatches every queued inbound frame and returns once the channel
// is empty.
func (s *Session) Update() error {
	return drain(s.t, s.dispatch)
}

func (s *Session) dispatch(f protocol.Frame) {
	switch f.Type {
	case protocol.TypeHotKey:
		for _, w := range s.watchers.Snapshot() {
			w.OnHotKey(s)
		}
	case protocol.TypeMouse:
		e, err := f.Mouse()
		if err != nil {
			s.log.Warn("Dropping malformed mouse frame", zap.Error(err))
			return
		}
		for _, w := range s.watchers.Snapshot() {
			w.OnMouseEvent(s, e)
		}
	case protocol.TypeKey:
		e, err := f.Key()
		if err != nil {
			s.log.Warn("Dropping malformed key frame", zap.Error(err))
			return
		}
		for _, w := range s.watchers.Snapshot() {
			w.OnKeyEvent(s, e)
		}
	default:
		s.log.Debug("Ignoring frame", zap.Stringer("type", f.Type))
	}
}

// Tick runs one idle step: Update, then OnIdle on every watcher.
func (s *Session) Tick() error {
	if err := s.Update(); err != nil {
		return err
	}
	for _, w := range s.watchers.Snapshot() {
		w.OnIdle(s)
	}
	return nil
}

// Run ticks every idle interval until ctx is done or the channel fails.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer s.running.Store(false)

	s.log.Info("Session loop started",
		zap.Uint32("width", s.width), zap.Uint32("height", s.height), zap.Duration("idle", s.idle))

	ticker := time.NewTicker(s.idle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Tick(); err != nil {
				s.log.Error("Session loop stopped", zap.Error(err))
				return err
			}
		}
	}
}

// Close closes the transport.
func (s *Session) Close() error {
	return s.t.Close()
}

// drain pulls frames until the transport is empty. Any other pull error is
// reported as ErrPipe.
func drain(t Transport, handle func(protocol.Frame)) error {
	for {
		f, err := t.Pull()
		if errors.Is(err, pipe.ErrEmpty) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPipe, err)
		}
		handle(f)
	}
}
