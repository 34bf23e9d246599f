package intercept

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memPatcher is an in-memory import table.
type memPatcher struct {
	slots  map[string]uintptr
	failOn string
	log    []string
}

func newMemPatcher() *memPatcher {
	return &memPatcher{slots: map[string]uintptr{
		"GetMessageA":  0xA1,
		"GetMessageW":  0xA2,
		"PeekMessageA": 0xA3,
		"PeekMessageW": 0xA4,
	}}
}

func (m *memPatcher) Swap(name string, replacement uintptr) (uintptr, error) {
	if name == m.failOn {
		return 0, errors.New("write protected")
	}
	orig, ok := m.slots[name]
	if !ok {
		return 0, errors.New("no such import")
	}
	m.slots[name] = replacement
	m.log = append(m.log, "swap "+name)
	return orig, nil
}

func (m *memPatcher) Restore(name string, original uintptr) error {
	m.slots[name] = original
	m.log = append(m.log, "restore "+name)
	return nil
}

func buildTable(t *testing.T, p Patcher) (*Table, []*Binding) {
	t.Helper()
	table := NewTable(p)
	var bindings []*Binding
	for i, name := range []string{"GetMessageA", "GetMessageW", "PeekMessageA", "PeekMessageW"} {
		b, err := table.Add(name, uintptr(0xF0+i))
		require.NoError(t, err)
		bindings = append(bindings, b)
	}
	return table, bindings
}

func TestInstallAndUninstall(t *testing.T) {
	p := newMemPatcher()
	table, bindings := buildTable(t, p)

	require.NoError(t, table.Install())
	assert.True(t, table.Installed())
	assert.Equal(t, uintptr(0xF0), p.slots["GetMessageA"])
	assert.Equal(t, uintptr(0xF3), p.slots["PeekMessageW"])
	assert.Equal(t, uintptr(0xA1), bindings[0].Original())
	assert.Equal(t, "PeekMessageW", bindings[3].Name())

	require.NoError(t, table.Install(), "second install is a no-op")
	assert.Len(t, p.log, 4)

	require.NoError(t, table.Uninstall())
	assert.False(t, table.Installed())
	assert.Equal(t, uintptr(0xA1), p.slots["GetMessageA"])
	assert.Equal(t, uintptr(0xA4), p.slots["PeekMessageW"])
	assert.Equal(t, []string{"restore PeekMessageW", "restore PeekMessageA", "restore GetMessageW", "restore GetMessageA"}, p.log[4:])
	assert.Equal(t, uintptr(0xA1), bindings[0].Original(), "trampoline survives uninstall")
}

func TestInstallRollsBack(t *testing.T) {
	p := newMemPatcher()
	p.failOn = "PeekMessageA"
	table, _ := buildTable(t, p)

	err := table.Install()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPartialInstall)
	assert.False(t, table.Installed())

	assert.Equal(t, newMemPatcher().slots, p.slots, "no entry is left redirected")
	assert.Equal(t, []string{"swap GetMessageA", "swap GetMessageW", "restore GetMessageW", "restore GetMessageA"}, p.log)
}

func TestAddAfterInstall(t *testing.T) {
	table, _ := buildTable(t, newMemPatcher())
	require.NoError(t, table.Install())

	_, err := table.Add("TranslateMessage", 0x1)
	assert.ErrorIs(t, err, ErrInstalled)
}

func TestAddDuplicate(t *testing.T) {
	table, _ := buildTable(t, newMemPatcher())
	_, err := table.Add("GetMessageA", 0x1)
	assert.ErrorIs(t, err, ErrDuplicateEntry)
}

func TestInstallBusy(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	p := &blockingPatcher{memPatcher: newMemPatcher(), entered: entered, release: release}
	table, _ := buildTable(t, p)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, table.Install())
	}()

	<-entered
	assert.ErrorIs(t, table.Install(), ErrBusy, "concurrent install does not wait")
	close(release)
	wg.Wait()
	assert.True(t, table.Installed())
}

type blockingPatcher struct {
	*memPatcher
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (b *blockingPatcher) Swap(name string, replacement uintptr) (uintptr, error) {
	b.once.Do(func() {
		close(b.entered)
		<-b.release
	})
	return b.memPatcher.Swap(name, replacement)
}
