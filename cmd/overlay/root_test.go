package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"overlay/internal/config"
	"overlay/internal/observability"
	"overlay/internal/pipe"
	"overlay/internal/plugin"
	"overlay/internal/protocol"
	"overlay/internal/relay"
)

// writeConfig places a config file with a unique pipe prefix in a temp dir.
func writeConfig(t *testing.T) (path, prefix string) {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	prefix = "overlay_cli_" + uuid.NewString()[:8] + "_"
	path = filepath.Join(t.TempDir(), "config.yaml")
	data := "pipe:\n  prefix: " + prefix + "\nrelay:\n  idle_interval: 5ms\nlogger:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path, prefix
}

func execute(ctx context.Context, args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func nextStatus(t *testing.T, c *pipe.Conn) protocol.Status {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f, err := c.Pull()
		if errors.Is(err, pipe.ErrEmpty) {
			time.Sleep(2 * time.Millisecond)
			continue
		}
		require.NoError(t, err)
		if f.Type != protocol.TypeStatus {
			continue
		}
		st, err := f.Status()
		require.NoError(t, err)
		return st
	}
	t.Fatal("no status frame from renderer")
	return protocol.Status{}
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(context.Background(), "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestVersionCommand(t *testing.T) {
	path, _ := writeConfig(t)
	out, err := execute(context.Background(), "version", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "overlay version "+Version)
}

func TestConfigSaveWritesEffectiveSettings(t *testing.T) {
	path, prefix := writeConfig(t)
	t.Setenv("OVERLAY_OVERLAY_HEIGHT", "480")

	out, err := execute(context.Background(), "config", "save", "--config", path, "--width", "640")
	require.NoError(t, err)
	assert.Contains(t, out, path)

	mgr, err := config.NewManager(path)
	require.NoError(t, err)
	os.Unsetenv("OVERLAY_OVERLAY_HEIGHT")
	require.NoError(t, mgr.Load())
	cfg := mgr.Get()
	assert.Equal(t, uint32(640), cfg.Overlay.Width, "flag persisted")
	assert.Equal(t, uint32(480), cfg.Overlay.Height, "environment persisted")
	assert.Equal(t, prefix, cfg.Pipe.Prefix, "file settings kept")
}

func TestConfigPath(t *testing.T) {
	path, _ := writeConfig(t)
	out, err := execute(context.Background(), "config", "path", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)
}

func TestRendererRequiresSurface(t *testing.T) {
	path, _ := writeConfig(t)
	_, err := execute(context.Background(), "renderer", "--config", path)
	assert.ErrorIs(t, err, config.ErrInvalidParams)
}

func TestRendererRejectsUnknownPlugin(t *testing.T) {
	path, _ := writeConfig(t)
	_, err := execute(context.Background(), "renderer", "--config", path,
		"--width", "64", "--height", "32", "--plugins", "nope")
	assert.ErrorIs(t, err, plugin.ErrUnknown)
}

func TestRendererWithoutHost(t *testing.T) {
	path, _ := writeConfig(t)
	_, err := execute(context.Background(), "renderer", "--config", path, "--width", "64", "--height", "32")
	assert.ErrorIs(t, err, relay.ErrPipe)
}

func TestRendererTogglesOnHotKey(t *testing.T) {
	path, prefix := writeConfig(t)
	ln, err := pipe.Listen(pipe.InstanceName(prefix, 3))
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, err := execute(ctx, "renderer", "--config", path,
			"--width", "64", "--height", "32", "--flag", "3", "--plugins", "toggle")
		done <- err
	}()

	c, err := ln.Accept()
	require.NoError(t, err)
	host := pipe.NewConn(c, 0, nil)
	defer host.Close()

	assert.Equal(t, protocol.Status{}, nextStatus(t, host), "hidden on load")

	require.NoError(t, host.Push(protocol.NewEncoder().EncodeHotKey()))
	assert.Equal(t, protocol.Status{Show: true, Shield: true}, nextStatus(t, host))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("renderer did not stop")
	}
	assert.Equal(t, protocol.Status{}, nextStatus(t, host), "hidden on unload")
}
