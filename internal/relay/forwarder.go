package relay

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"overlay/internal/input"
	"overlay/internal/osutils"
	"overlay/internal/protocol"
)

// Presenter paints what the renderer sends into the host window.
type Presenter interface {
	Show(st protocol.Status)
	Paint(p protocol.Paint)
}

// CaptureSetter switches input capture. *input.Engine implements it.
type CaptureSetter interface {
	SetCapture(capture bool)
}

// SurfaceSetter receives the renderer's surface bounds. *input.Engine
// implements it.
type SurfaceSetter interface {
	SetTransRect(game, back osutils.Rect)
}

// ForwarderOptions configures a host-side Forwarder.
type ForwarderOptions struct {
	Presenter Presenter
	Capture   CaptureSetter
	Surface   SurfaceSetter
	Logger    *zap.Logger
}

// Forwarder is the host end of the channel. It frames forwarded input for
// the renderer and applies the renderer's status and paint frames.
type Forwarder struct {
	log       *zap.Logger
	presenter Presenter
	capture   CaptureSetter
	surface   SurfaceSetter

	mu  sync.Mutex
	t   Transport
	enc *protocol.Encoder

	dropped    atomic.Uint64
	pushErrors atomic.Uint64
}

var _ input.Consumer = (*Forwarder)(nil)

// NewForwarder creates a forwarder with no renderer attached.
func NewForwarder(opts ForwarderOptions) *Forwarder {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Forwarder{
		log:       logger.Named("forwarder"),
		presenter: opts.Presenter,
		capture:   opts.Capture,
		surface:   opts.Surface,
		enc:       protocol.NewEncoder(),
	}
}

// BindCapture sets the capture target for engines built after the forwarder.
func (f *Forwarder) BindCapture(c CaptureSetter) {
	f.mu.Lock()
	f.capture = c
	f.mu.Unlock()
}

// BindSurface sets the surface target for engines built after the forwarder.
func (f *Forwarder) BindSurface(s SurfaceSetter) {
	f.mu.Lock()
	f.surface = s
	f.mu.Unlock()
}

// Attach routes forwarded input to t and returns the previous transport.
func (f *Forwarder) Attach(t Transport) Transport {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev := f.t
	f.t = t
	return prev
}

// Detach disconnects the current transport and returns it.
func (f *Forwarder) Detach() Transport {
	return f.Attach(nil)
}

// Attached reports whether a renderer is connected.
func (f *Forwarder) Attached() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t != nil
}

// Dropped returns how many events were discarded for lack of a renderer.
func (f *Forwarder) Dropped() uint64 { return f.dropped.Load() }

// HandleHookMessage implements input.Consumer.
func (f *Forwarder) HandleHookMessage(msg input.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.t == nil {
		f.dropped.Add(1)
		return
	}

	var frame []byte
	switch {
	case msg.ID == input.ControlMessage && msg.WParam == input.WParamHotKey:
		frame = f.enc.EncodeHotKey()
	case input.IsKeyboard(msg.ID):
		frame = f.enc.EncodeKey(protocol.Key{
			Message: msg.ID,
			WParam:  uint32(msg.WParam),
			LParam:  uint32(msg.LParam),
			Time:    msg.Time,
		})
	case input.IsMouse(msg.ID), input.IsNonClientMouse(msg.ID):
		pt := msg.Point()
		frame = f.enc.EncodeMouse(protocol.Mouse{
			Message: msg.ID,
			WParam:  uint32(msg.WParam),
			X:       pt.X,
			Y:       pt.Y,
			Time:    msg.Time,
		})
	default:
		return
	}

	if err := f.t.Push(frame); err != nil {
		f.pushErrors.Add(1)
	}
}

// Pump applies every queued frame from the renderer. It returns ErrPipe when
// the channel has failed; with no renderer attached it does nothing.
func (f *Forwarder) Pump() error {
	f.mu.Lock()
	t := f.t
	f.mu.Unlock()
	if t == nil {
		return nil
	}
	return drain(t, f.apply)
}

func (f *Forwarder) apply(fr protocol.Frame) {
	switch fr.Type {
	case protocol.TypeStatus:
		st, err := fr.Status()
		if err != nil {
			f.log.Warn("Dropping malformed status frame", zap.Error(err))
			return
		}
		f.log.Debug("Status changed", zap.Bool("show", st.Show), zap.Bool("shield", st.Shield))
		if f.presenter != nil {
			f.presenter.Show(st)
		}
		f.mu.Lock()
		c := f.capture
		f.mu.Unlock()
		if c != nil {
			c.SetCapture(st.Shield)
		}
	case protocol.TypeSurface:
		sf, err := fr.Surface()
		if err != nil {
			f.log.Warn("Dropping malformed surface frame", zap.Error(err))
			return
		}
		f.log.Info("Renderer surface", zap.Uint32("width", sf.Width), zap.Uint32("height", sf.Height))
		f.mu.Lock()
		target := f.surface
		f.mu.Unlock()
		if target != nil {
			// The overlay covers the host's content area.
			r := osutils.Rect{Width: int32(sf.Width), Height: int32(sf.Height)}
			target.SetTransRect(r, r)
		}
	case protocol.TypePaint:
		p, err := fr.Paint()
		if err != nil {
			f.log.Warn("Dropping malformed paint frame", zap.Error(err))
			return
		}
		if f.presenter != nil {
			f.presenter.Paint(p)
		}
	default:
		f.log.Debug("Ignoring frame", zap.Stringer("type", fr.Type))
	}
}

// Run pumps every interval until ctx is done or the attached channel fails.
// A failed channel is detached and closed before Run returns.
func (f *Forwarder) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultIdleInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := f.Pump(); err != nil {
				if t := f.Detach(); t != nil {
					t.Close()
				}
				f.log.Warn("Renderer disconnected",
					zap.Uint64("push_errors", f.pushErrors.Swap(0)), zap.Error(err))
				return err
			}
		}
	}
}
