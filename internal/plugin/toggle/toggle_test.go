package toggle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"overlay/internal/plugin"
	"overlay/internal/protocol"
	"overlay/internal/relay"
)

type fakeRenderer struct {
	displays []protocol.Status
	watchers relay.WatcherSet
	err      error
}

func (r *fakeRenderer) Display(show, shield bool) error {
	if r.err != nil {
		return r.err
	}
	r.displays = append(r.displays, protocol.Status{Show: show, Shield: shield})
	return nil
}

func (r *fakeRenderer) Redraw(protocol.RedrawEvent) error { return nil }
func (r *fakeRenderer) Width() uint32                     { return 800 }
func (r *fakeRenderer) Height() uint32                    { return 600 }
func (r *fakeRenderer) AddWatcher(w relay.Watcher)        { r.watchers.Add(w) }
func (r *fakeRenderer) RemoveWatcher(w relay.Watcher)     { r.watchers.Remove(w) }

func TestToggleFlipsOnHotKey(t *testing.T) {
	tg := New()
	r := &fakeRenderer{}
	m := Module(tg)

	require.NoError(t, m.Load(r))
	require.Equal(t, 1, r.watchers.Len())

	for _, w := range r.watchers.Snapshot() {
		w.OnHotKey(r)
	}
	assert.True(t, tg.Shown())
	for _, w := range r.watchers.Snapshot() {
		w.OnHotKey(r)
	}
	assert.False(t, tg.Shown())

	m.Unload(r)
	assert.Zero(t, r.watchers.Len())
	assert.Equal(t, []protocol.Status{
		{}, // hidden on load
		{Show: true, Shield: true},
		{},
		{}, // hidden on unload
	}, r.displays)
}

func TestToggleKeepsStateWhenDisplayFails(t *testing.T) {
	tg := New()
	r := &fakeRenderer{err: errors.New("pipe closed")}

	assert.Error(t, tg.Set(r, true))
	assert.False(t, tg.Shown())
}

func TestDisplayFailuresAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	tg := New()
	tg.SetLogger(zap.New(core))
	r := &fakeRenderer{}
	m := Module(tg)
	require.NoError(t, m.Load(r))

	r.err = errors.New("pipe closed")
	for _, w := range r.watchers.Snapshot() {
		w.OnHotKey(r)
	}
	m.Unload(r)

	assert.False(t, tg.Shown())
	assert.Equal(t, 1, logs.FilterMessage("Failed to toggle overlay").Len())
	assert.Equal(t, 1, logs.FilterMessage("Failed to hide overlay on unload").Len())
}

func TestUnloadHidesWhileShown(t *testing.T) {
	tg := New()
	r := &fakeRenderer{}
	m := Module(tg)

	require.NoError(t, m.Load(r))
	require.NoError(t, tg.Set(r, true))
	m.Unload(r)

	assert.False(t, tg.Shown())
	assert.Equal(t, protocol.Status{}, r.displays[len(r.displays)-1])
}

func TestRegisteredInCatalog(t *testing.T) {
	assert.Contains(t, plugin.Default().Names(), Name)
}
