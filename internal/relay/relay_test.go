package relay

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"overlay/internal/input"
	"overlay/internal/osutils"
	"overlay/internal/pipe"
	"overlay/internal/protocol"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeTransport struct {
	mu      sync.Mutex
	in      []protocol.Frame
	err     error
	pushed  [][]byte
	pushErr error
	closed  bool
}

func (t *fakeTransport) Push(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pushErr != nil {
		return t.pushErr
	}
	t.pushed = append(t.pushed, append([]byte(nil), frame...))
	return nil
}

func (t *fakeTransport) Pull() (protocol.Frame, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.in) > 0 {
		f := t.in[0]
		t.in = t.in[1:]
		return f, nil
	}
	if t.err != nil {
		return protocol.Frame{}, t.err
	}
	return protocol.Frame{}, pipe.ErrEmpty
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) queue(frame []byte) {
	f, _, err := protocol.Decode(append([]byte(nil), frame...))
	if err != nil {
		panic(err)
	}
	t.mu.Lock()
	t.in = append(t.in, f)
	t.mu.Unlock()
}

func (t *fakeTransport) lastPushed(tb testing.TB) protocol.Frame {
	tb.Helper()
	t.mu.Lock()
	defer t.mu.Unlock()
	require.NotEmpty(tb, t.pushed)
	f, _, err := protocol.Decode(t.pushed[len(t.pushed)-1])
	require.NoError(tb, err)
	return f
}

// recordingWatcher logs every callback as "<name>:<event>".
type recordingWatcher struct {
	name string
	log  *[]string
	keys []protocol.Key
	mice []protocol.Mouse
}

func (w *recordingWatcher) OnHotKey(Renderer) { *w.log = append(*w.log, w.name+":hotkey") }
func (w *recordingWatcher) OnIdle(Renderer)   { *w.log = append(*w.log, w.name+":idle") }

func (w *recordingWatcher) OnMouseEvent(_ Renderer, e protocol.Mouse) {
	w.mice = append(w.mice, e)
	*w.log = append(*w.log, w.name+":mouse")
}

func (w *recordingWatcher) OnKeyEvent(_ Renderer, e protocol.Key) {
	w.keys = append(w.keys, e)
	*w.log = append(*w.log, w.name+":key")
}

func newSession(t *testing.T, tr Transport) *Session {
	t.Helper()
	s, err := NewSession(tr, SessionOptions{Width: 800, Height: 600, IdleInterval: time.Millisecond})
	require.NoError(t, err)
	return s
}

func TestNewSessionRejectsEmptySurface(t *testing.T) {
	_, err := NewSession(&fakeTransport{}, SessionOptions{Width: 0, Height: 600})
	assert.ErrorIs(t, err, ErrInvalidParams)
	_, err = NewSession(&fakeTransport{}, SessionOptions{Width: 800})
	assert.ErrorIs(t, err, ErrInvalidParams)

	s := newSession(t, &fakeTransport{})
	assert.Equal(t, uint32(800), s.Width())
	assert.Equal(t, uint32(600), s.Height())
	assert.NotEmpty(t, s.ID())
}

func TestNewSessionAnnouncesSurface(t *testing.T) {
	tr := &fakeTransport{}
	newSession(t, tr)

	require.Len(t, tr.pushed, 1)
	sf, err := tr.lastPushed(t).Surface()
	require.NoError(t, err)
	assert.Equal(t, protocol.Surface{Width: 800, Height: 600}, sf)

	_, err = NewSession(&fakeTransport{pushErr: errors.New("broken pipe")}, SessionOptions{Width: 800, Height: 600})
	assert.ErrorIs(t, err, ErrPipe)
}

func TestDisplayPushesStatus(t *testing.T) {
	tr := &fakeTransport{}
	s := newSession(t, tr)

	require.NoError(t, s.Display(true, false))
	st, err := tr.lastPushed(t).Status()
	require.NoError(t, err)
	assert.Equal(t, protocol.Status{Show: true}, st)

	tr.pushErr = errors.New("broken pipe")
	assert.ErrorIs(t, s.Display(false, false), ErrPipe)
}

func TestRedrawPushesPaint(t *testing.T) {
	tr := &fakeTransport{}
	s := newSession(t, tr)
	bits := make([]byte, 4*4*4)
	for i := range bits {
		bits[i] = byte(i)
	}

	require.NoError(t, s.Redraw(protocol.RedrawEvent{
		Bits: bits, Width: 4, Height: 4,
		SubsetLeft: 1, SubsetTop: 1, SubsetWidth: 2, SubsetHeight: 2,
	}))
	p, err := tr.lastPushed(t).Paint()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), p.Width)
	// Row 1, column 1 starts at byte (1*4+1)*4 = 20.
	assert.Equal(t, bits[20:28], p.Pixels[:8])
	assert.Equal(t, bits[36:44], p.Pixels[8:])

	err = s.Redraw(protocol.RedrawEvent{Bits: bits, Width: 4, Height: 4, SubsetLeft: 3, SubsetWidth: 2, SubsetHeight: 1})
	assert.ErrorIs(t, err, protocol.ErrRectOutOfBounds)
}

func TestUpdateDispatchesInOrder(t *testing.T) {
	tr := &fakeTransport{}
	s := newSession(t, tr)
	var log []string
	a := &recordingWatcher{name: "a", log: &log}
	b := &recordingWatcher{name: "b", log: &log}
	s.AddWatcher(a)
	s.AddWatcher(b)

	enc := protocol.NewEncoder()
	tr.queue(enc.EncodeHotKey())
	tr.queue(enc.EncodeKey(protocol.Key{Message: 0x100, WParam: 0x41}))
	tr.queue(enc.EncodeMouse(protocol.Mouse{Message: 0x200, X: 105, Y: 103}))

	require.NoError(t, s.Update())
	assert.Equal(t, []string{"a:hotkey", "b:hotkey", "a:key", "b:key", "a:mouse", "b:mouse"}, log)
	assert.Equal(t, []protocol.Key{{Message: 0x100, WParam: 0x41}}, a.keys)
	assert.Equal(t, int32(105), b.mice[0].X)
}

func TestUpdateErrors(t *testing.T) {
	tr := &fakeTransport{}
	s := newSession(t, tr)
	require.NoError(t, s.Update(), "empty channel is not an error")

	tr.err = errors.New("pipe broken")
	assert.ErrorIs(t, s.Update(), ErrPipe)
}

func TestTickRunsIdleAfterUpdate(t *testing.T) {
	tr := &fakeTransport{}
	s := newSession(t, tr)
	var log []string
	s.AddWatcher(&recordingWatcher{name: "a", log: &log})

	tr.queue(protocol.NewEncoder().EncodeHotKey())
	require.NoError(t, s.Tick())
	require.NoError(t, s.Tick())
	assert.Equal(t, []string{"a:hotkey", "a:idle", "a:idle"}, log)

	tr.err = errors.New("gone")
	assert.ErrorIs(t, s.Tick(), ErrPipe)
	assert.Len(t, log, 3, "idle not run after a pipe failure")
}

func TestRunStopsOnCancel(t *testing.T) {
	s := newSession(t, &fakeTransport{})
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()
	require.Eventually(t, func() bool { return s.running.Load() }, time.Second, time.Millisecond)

	assert.ErrorIs(t, s.Run(context.Background()), ErrRunning)

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}

func TestRunStopsOnPipeFailure(t *testing.T) {
	tr := &fakeTransport{err: errors.New("eof")}
	s := newSession(t, tr)

	err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrPipe)
	assert.False(t, s.running.Load())
}

func TestWatcherSet(t *testing.T) {
	var set WatcherSet
	var log []string
	a := &recordingWatcher{name: "a", log: &log}
	b := &recordingWatcher{name: "b", log: &log}
	c := &recordingWatcher{name: "c", log: &log}

	set.Add(a)
	set.Add(b)
	set.Add(a)
	set.Add(c)
	assert.Equal(t, []Watcher{a, b, c}, set.Snapshot())

	snap := set.Snapshot()
	set.Remove(b)
	set.Remove(b)
	assert.Equal(t, []Watcher{a, c}, set.Snapshot())
	assert.Equal(t, []Watcher{a, b, c}, snap, "earlier snapshots are unaffected")
	assert.Equal(t, 2, set.Len())
}

func TestWatcherRemovesItselfDuringDispatch(t *testing.T) {
	tr := &fakeTransport{}
	s := newSession(t, tr)
	var calls int
	var once *WatcherFuncs
	once = &WatcherFuncs{HotKey: func(r Renderer) {
		calls++
		r.RemoveWatcher(once)
	}}
	s.AddWatcher(once)

	enc := protocol.NewEncoder()
	tr.queue(enc.EncodeHotKey())
	tr.queue(enc.EncodeHotKey())
	require.NoError(t, s.Update())
	assert.Equal(t, 1, calls)
	assert.Zero(t, s.Watchers())
}

type fakePresenter struct {
	statuses []protocol.Status
	paints   []protocol.Paint
}

func (p *fakePresenter) Show(st protocol.Status) { p.statuses = append(p.statuses, st) }
func (p *fakePresenter) Paint(pt protocol.Paint) { p.paints = append(p.paints, pt) }

type fakeCapture struct{ calls []bool }

func (c *fakeCapture) SetCapture(v bool) { c.calls = append(c.calls, v) }

type fakeSurface struct{ game, back []osutils.Rect }

func (s *fakeSurface) SetTransRect(game, back osutils.Rect) {
	s.game = append(s.game, game)
	s.back = append(s.back, back)
}

func keyMessage() input.Message {
	return input.Message{Hwnd: 1, ID: input.WM_KEYDOWN, WParam: 0x41, LParam: 0x1E0001, Time: 5}
}

func TestForwarderDropsWithoutRenderer(t *testing.T) {
	f := NewForwarder(ForwarderOptions{})
	f.HandleHookMessage(keyMessage())
	assert.Equal(t, uint64(1), f.Dropped())
	assert.NoError(t, f.Pump())
	assert.False(t, f.Attached())
}

func TestForwarderFramesInput(t *testing.T) {
	tr := &fakeTransport{}
	f := NewForwarder(ForwarderOptions{})
	require.Nil(t, f.Attach(tr))

	f.HandleHookMessage(keyMessage())
	k, err := tr.lastPushed(t).Key()
	require.NoError(t, err)
	assert.Equal(t, protocol.Key{Message: input.WM_KEYDOWN, WParam: 0x41, LParam: 0x1E0001, Time: 5}, k)

	mouse := input.Message{Hwnd: 1, ID: input.WM_LBUTTONDOWN, WParam: 1}
	mouse.SetPoint(osutils.Point{X: -3, Y: 599})
	f.HandleHookMessage(mouse)
	m, err := tr.lastPushed(t).Mouse()
	require.NoError(t, err)
	assert.Equal(t, int32(-3), m.X)
	assert.Equal(t, int32(599), m.Y)

	f.HandleHookMessage(input.Message{Hwnd: 1, ID: input.ControlMessage, WParam: input.WParamHotKey})
	assert.Equal(t, protocol.TypeHotKey, tr.lastPushed(t).Type)

	f.HandleHookMessage(input.Message{Hwnd: 1, ID: 0x0F})
	assert.Len(t, tr.pushed, 3, "unrelated messages are not framed")
	assert.Zero(t, f.Dropped())
}

func TestForwarderPumpAppliesStatusAndPaint(t *testing.T) {
	tr := &fakeTransport{}
	presenter := &fakePresenter{}
	capture := &fakeCapture{}
	f := NewForwarder(ForwarderOptions{Presenter: presenter, Capture: capture})
	f.Attach(tr)

	enc := protocol.NewEncoder()
	tr.queue(enc.EncodeStatus(protocol.Status{Show: true, Shield: true}))
	frame, err := enc.EncodePaint(protocol.RedrawEvent{Bits: make([]byte, 16), Width: 2, Height: 2, SubsetWidth: 1, SubsetHeight: 1})
	require.NoError(t, err)
	tr.queue(frame)
	tr.queue(enc.EncodeStatus(protocol.Status{Show: true}))

	require.NoError(t, f.Pump())
	assert.Equal(t, []protocol.Status{{Show: true, Shield: true}, {Show: true}}, presenter.statuses)
	assert.Len(t, presenter.paints, 1)
	assert.Equal(t, []bool{true, false}, capture.calls)
}

func TestForwarderAppliesSurface(t *testing.T) {
	tr := &fakeTransport{}
	surface := &fakeSurface{}
	f := NewForwarder(ForwarderOptions{})
	f.BindSurface(surface)
	f.Attach(tr)

	// A session's first frame is its surface announcement.
	newSession(t, tr)
	tr.queue(tr.pushed[0])

	require.NoError(t, f.Pump())
	assert.Equal(t, []osutils.Rect{{Width: 800, Height: 600}}, surface.back)
}

func TestForwarderRunDetachesOnFailure(t *testing.T) {
	tr := &fakeTransport{err: errors.New("reset")}
	f := NewForwarder(ForwarderOptions{})
	f.Attach(tr)

	err := f.Run(context.Background(), time.Millisecond)
	assert.ErrorIs(t, err, ErrPipe)
	assert.False(t, f.Attached())
	assert.True(t, tr.closed)
}

func TestEndToEndOverPipe(t *testing.T) {
	hostSide, rendererSide := net.Pipe()
	hostConn := pipe.NewConn(hostSide, 0, nil)
	rendererConn := pipe.NewConn(rendererSide, 0, nil)
	defer hostConn.Close()
	defer rendererConn.Close()

	capture := &fakeCapture{}
	fwd := NewForwarder(ForwarderOptions{Capture: capture})
	fwd.Attach(hostConn)

	session := newSession(t, rendererConn)
	var log []string
	w := &recordingWatcher{name: "w", log: &log}
	session.AddWatcher(w)

	require.NoError(t, session.Display(true, true))
	require.Eventually(t, func() bool {
		if err := fwd.Pump(); err != nil {
			return false
		}
		return len(capture.calls) == 1
	}, time.Second, time.Millisecond)
	assert.True(t, capture.calls[0])

	fwd.HandleHookMessage(keyMessage())
	require.Eventually(t, func() bool {
		if err := session.Update(); err != nil {
			return false
		}
		return len(w.keys) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, uint32(0x41), w.keys[0].WParam)
}
