package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"overlay/internal/config"
	"overlay/internal/observability"
	"overlay/internal/pipe"
	"overlay/internal/plugin"
	"overlay/internal/plugin/toggle"
	"overlay/internal/relay"
	"overlay/internal/tray"
)

// dialTimeout bounds the wait for a host that is not listening yet.
const dialTimeout = 5 * time.Second

func newRendererCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "renderer",
		Short: "Connect to the hooked host and run the overlay plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRenderer(cmd.Context(), a.mgr.Get(), observability.GetLogger())
		},
	}
	f := cmd.Flags()
	f.Uint32("width", 0, "render surface width in pixels")
	f.Uint32("height", 0, "render surface height in pixels")
	f.Uint32("flag", 0, "instance flag shared with the host")
	f.StringSlice("plugins", nil, "plugin modules to load (default all)")
	f.Bool("tray", false, "show a system tray menu")
	f.String("log-level", "", "log level (debug, info, warn, error)")
	return cmd
}

func runRenderer(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	modules, err := plugin.Default().Select(cfg.Overlay.Plugins)
	if err != nil {
		return err
	}

	name := pipe.InstanceName(cfg.Pipe.Prefix, cfg.Overlay.Flag)
	dialCtx, cancelDial := context.WithTimeout(ctx, dialTimeout)
	c, err := pipe.Dial(dialCtx, name)
	cancelDial()
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", relay.ErrPipe, name, err)
	}

	session, err := relay.NewSession(pipe.NewConn(c, cfg.Pipe.QueueSize, logger), relay.SessionOptions{
		Width:        cfg.Overlay.Width,
		Height:       cfg.Overlay.Height,
		IdleInterval: cfg.Relay.IdleInterval,
		Logger:       logger,
	})
	if err != nil {
		c.Close()
		return err
	}
	logger.Info("Connected to host",
		zap.String("pipe", name), zap.String("session", session.ID()),
		zap.Uint32("width", session.Width()), zap.Uint32("height", session.Height()))

	toggle.Default.SetLogger(logger)
	registry := plugin.NewRegistry(logger)
	registry.LoadAll(session, modules)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		err := session.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if cfg.Overlay.Tray {
		runTray(gctx, cancel, session, logger)
		cancel()
	}
	err = g.Wait()

	registry.UnloadAll(session)
	if cerr := session.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
		logger.Debug("Session close", zap.Error(cerr))
	}
	logger.Info("Renderer stopped", zap.Error(err))
	return err
}

// runTray blocks on the tray loop until ctx is done or Quit is chosen.
func runTray(ctx context.Context, quit context.CancelFunc, r relay.Renderer, logger *zap.Logger) {
	t := tray.New("Overlay", "Overlay renderer", logger)
	var showID int
	showID = t.AddCheckbox("Show overlay", toggle.Default.Shown(), func() {
		if err := toggle.Default.Set(r, !toggle.Default.Shown()); err != nil {
			logger.Warn("Failed to toggle overlay", zap.Error(err))
		}
		t.SetItemChecked(showID, toggle.Default.Shown())
	})
	t.AddSeparator()
	t.AddMenuItem("Quit", "Stop the renderer", quit)
	t.Run(ctx)
}
