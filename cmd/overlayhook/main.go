//go:build windows && cgo

// Command overlayhook builds the DLL loaded into the host process:
//
//	go build -buildmode=c-shared -o overlayhook.dll ./cmd/overlayhook
//
// The loader calls OverlayAttach once the DLL is mapped and OverlayDetach
// before unloading it.
package main

import "C"

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"overlay/internal/config"
	"overlay/internal/host"
	"overlay/internal/observability"
)

var (
	mu       sync.Mutex
	attached *host.Host
	watching sync.Once
)

// OverlayAttach hooks the current process. It returns 0 on success and is a
// no-op when already attached.
//
//export OverlayAttach
func OverlayAttach() C.int {
	mu.Lock()
	defer mu.Unlock()
	if attached != nil {
		return 0
	}

	cfg, mgr, loadErr := loadConfig()
	// The host's console is not ours to write to.
	observability.Initialize(cfg.Logger, zapcore.AddSync(io.Discard))
	logger := observability.GetLogger()
	if loadErr != nil {
		logger.Warn("Using default configuration", zap.Error(loadErr))
	}

	deps, err := host.DefaultDeps(logger)
	if err != nil {
		logger.Error("Platform setup failed", zap.Error(err))
		return 1
	}
	h, err := host.Attach(context.Background(), cfg, deps)
	if err != nil {
		logger.Error("Attach failed", zap.Error(err))
		return 1
	}
	attached = h
	if mgr != nil {
		watching.Do(func() { watch(mgr, logger) })
	}
	return 0
}

// watch applies edits to the config file to whichever host is attached.
func watch(mgr *config.Manager, logger *zap.Logger) {
	mgr.RegisterChangeCallback(func() {
		mu.Lock()
		defer mu.Unlock()
		if attached != nil {
			attached.Reconfigure(mgr.Get())
		}
	})
	mgr.Watch(func(err error) {
		logger.Warn("Config reload failed", zap.Error(err))
	})
}

// OverlayDetach restores the host and closes the renderer channel.
//
//export OverlayDetach
func OverlayDetach() C.int {
	mu.Lock()
	defer mu.Unlock()
	if attached == nil {
		return 0
	}
	err := attached.Detach()
	attached = nil
	observability.Sync()
	if err != nil {
		observability.GetLogger().Warn("Detach incomplete", zap.Error(err))
		return 1
	}
	return 0
}

func loadConfig() (*config.Config, *config.Manager, error) {
	cfg := config.NewDefaultConfig()
	mgr, err := config.NewManager("")
	if err != nil {
		return withLogFile(cfg), nil, err
	}
	if err := mgr.Load(); err != nil {
		return withLogFile(cfg), mgr, err
	}
	return withLogFile(mgr.Get()), mgr, nil
}

func withLogFile(cfg *config.Config) *config.Config {
	if cfg.Logger.LogFile == "" {
		cfg.Logger.LogFile = filepath.Join(os.TempDir(), "overlayhook.log")
	}
	return cfg
}

func main() {}
