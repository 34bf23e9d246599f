// Package host runs inside the host process: it redirects the host's message
// retrieval imports through the input engine and serves the renderer channel.
package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"overlay/internal/config"
	"overlay/internal/cursor"
	"overlay/internal/hotkey"
	"overlay/internal/input"
	"overlay/internal/intercept"
	"overlay/internal/osutils"
	"overlay/internal/pipe"
	"overlay/internal/relay"
)

// MessageEntryPoints are the host imports redirected through the engine.
var MessageEntryPoints = []string{"GetMessageA", "GetMessageW", "PeekMessageA", "PeekMessageW"}

// Trampolines builds the replacement for an intercepted entry point.
type Trampolines interface {
	// Replacement returns an address callable in place of name that runs
	// before and then chains to the address returned by original.
	Replacement(name string, before func(), original func() uintptr) (uintptr, error)
}

// Deps are the platform services a Host runs on. DefaultDeps fills them in
// on Windows.
type Deps struct {
	Locator     input.WindowLocator
	Hooker      input.Hooker
	Platform    input.Platform
	Screen      cursor.Screen
	Device      cursor.Device
	Keys        hotkey.KeyState
	Patcher     intercept.Patcher
	Trampolines Trampolines

	// Optional.
	Shield    input.Shield
	Presenter relay.Presenter
	Listen    func(name string) (net.Listener, error)
	Logger    *zap.Logger
}

func (d Deps) validate() error {
	var missing []string
	check := func(name string, ok bool) {
		if !ok {
			missing = append(missing, name)
		}
	}
	check("Locator", d.Locator != nil)
	check("Hooker", d.Hooker != nil)
	check("Platform", d.Platform != nil)
	check("Screen", d.Screen != nil)
	check("Device", d.Device != nil)
	check("Keys", d.Keys != nil)
	check("Patcher", d.Patcher != nil)
	check("Trampolines", d.Trampolines != nil)
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrMissingDependency, missing)
	}
	return nil
}

// Host is one attachment to the host process.
type Host struct {
	cfg       *config.Config
	log       *zap.Logger
	engine    *input.Engine
	fwd       *relay.Forwarder
	table     *intercept.Table
	shield    input.Shield
	presenter relay.Presenter
	ln        net.Listener
	pipeName  string

	cancel context.CancelFunc
	group  *errgroup.Group

	detachOnce sync.Once
	detachErr  error
}

// Attach wires the engine, opens the renderer channel and redirects the
// message entry points. Nothing stays installed when it fails.
func Attach(ctx context.Context, cfg *config.Config, deps Deps) (*Host, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if err := cfg.ValidateHost(); err != nil {
		return nil, err
	}
	combo, err := hotkey.ParseCombo(cfg.Hotkey.Combo)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	listen := deps.Listen
	if listen == nil {
		listen = pipe.Listen
	}

	fwd := relay.NewForwarder(relay.ForwarderOptions{Presenter: deps.Presenter, Logger: logger})
	engine := input.NewEngine(input.Options{
		Locator:   deps.Locator,
		Hooker:    deps.Hooker,
		Platform:  deps.Platform,
		Screen:    deps.Screen,
		Device:    deps.Device,
		Keys:      deps.Keys,
		Consumer:  fwd,
		Shield:    deps.Shield,
		Combo:     combo,
		Cooldown:  cfg.Hotkey.Cooldown,
		Reference: osutils.Point{X: cfg.Input.ReferenceX, Y: cfg.Input.ReferenceY},
		Windowed:  cfg.Input.Windowed,
		Logger:    logger,
	})
	fwd.BindCapture(engine)
	fwd.BindSurface(engine)
	if cfg.Overlay.Width > 0 && cfg.Overlay.Height > 0 {
		// Until a renderer announces its own surface.
		r := osutils.Rect{Width: int32(cfg.Overlay.Width), Height: int32(cfg.Overlay.Height)}
		engine.SetTransRect(r, r)
	}

	h := &Host{
		cfg:       cfg,
		log:       logger.Named("host"),
		engine:    engine,
		fwd:       fwd,
		table:     intercept.NewTable(deps.Patcher),
		shield:    deps.Shield,
		presenter: deps.Presenter,
		pipeName:  pipe.InstanceName(cfg.Pipe.Prefix, cfg.Overlay.Flag),
	}

	for _, name := range MessageEntryPoints {
		var b *intercept.Binding
		repl, err := deps.Trampolines.Replacement(name, engine.Cycle, func() uintptr { return b.Original() })
		if err != nil {
			return nil, fmt.Errorf("host: trampoline for %s: %w", name, err)
		}
		if b, err = h.table.Add(name, repl); err != nil {
			return nil, err
		}
	}

	ln, err := listen(h.pipeName)
	if err != nil {
		return nil, fmt.Errorf("%w: listen %s: %v", relay.ErrPipe, h.pipeName, err)
	}
	h.ln = ln

	if err := h.table.Install(); err != nil {
		ln.Close()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	h.cancel = cancel
	h.group = g
	g.Go(func() error { return h.serve(gctx) })

	h.log.Info("Attached", zap.String("pipe", h.pipeName), zap.Strings("entries", MessageEntryPoints))
	return h, nil
}

// Reconfigure applies settings that can change while attached: the display
// mode and, while no renderer is connected, the configured surface. A
// connected renderer's announced surface is kept.
func (h *Host) Reconfigure(cfg *config.Config) {
	h.engine.SetWindowed(cfg.Input.Windowed)
	if !h.fwd.Attached() && cfg.Overlay.Width > 0 && cfg.Overlay.Height > 0 {
		r := osutils.Rect{Width: int32(cfg.Overlay.Width), Height: int32(cfg.Overlay.Height)}
		h.engine.SetTransRect(r, r)
	}
	h.log.Info("Reconfigured",
		zap.Bool("windowed", cfg.Input.Windowed),
		zap.Uint32("width", cfg.Overlay.Width), zap.Uint32("height", cfg.Overlay.Height))
}

// Engine returns the input engine.
func (h *Host) Engine() *input.Engine { return h.engine }

// Forwarder returns the renderer link.
func (h *Host) Forwarder() *relay.Forwarder { return h.fwd }

// PipeName returns the channel name the renderer dials.
func (h *Host) PipeName() string { return h.pipeName }

// serve accepts renderers one at a time and pumps each until it leaves.
func (h *Host) serve(ctx context.Context) error {
	for {
		c, err := h.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("host: accept: %w", err)
		}

		conn := pipe.NewConn(c, h.cfg.Pipe.QueueSize, h.log)
		if prev := h.fwd.Attach(conn); prev != nil {
			prev.Close()
		}
		h.log.Info("Renderer connected")

		err = h.fwd.Run(ctx, h.cfg.Relay.IdleInterval)
		if ctx.Err() != nil {
			return nil
		}
		h.log.Info("Waiting for renderer", zap.Error(err))
		// A renderer that left without clearing its shield must not keep
		// the host's input.
		h.engine.SetCapture(false)
	}
}

// Detach tears the attachment down: interception and hook first, then the
// shield and presenter, then the channel.
func (h *Host) Detach() error {
	h.detachOnce.Do(func() {
		var errs []error
		if err := h.table.Uninstall(); err != nil {
			errs = append(errs, err)
		}
		if err := h.engine.Close(); err != nil {
			errs = append(errs, err)
		}

		for _, c := range []any{h.shield, h.presenter} {
			if closer, ok := c.(io.Closer); ok {
				if err := closer.Close(); err != nil {
					errs = append(errs, err)
				}
			}
		}

		h.cancel()
		h.ln.Close()
		if t := h.fwd.Detach(); t != nil {
			t.Close()
		}
		if err := h.group.Wait(); err != nil {
			errs = append(errs, err)
		}

		h.detachErr = errors.Join(errs...)
		h.log.Info("Detached", zap.Error(h.detachErr))
	})
	return h.detachErr
}
