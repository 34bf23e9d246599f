// Package intercept redirects a module's imported entry points as a single
// all-or-nothing transaction.
package intercept

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// ErrPartialInstall is returned when an entry could not be redirected; every
	// entry redirected before it has been restored.
	ErrPartialInstall = errors.New("interception table install rolled back")

	// ErrBusy is returned when another goroutine holds the table.
	ErrBusy = errors.New("interception table busy")

	// ErrInstalled is returned when entries are added to an installed table.
	ErrInstalled = errors.New("interception table already installed")

	// ErrDuplicateEntry is returned when the same name is added twice.
	ErrDuplicateEntry = errors.New("duplicate interception entry")
)

// Patcher rewrites a single named entry point.
type Patcher interface {
	// Swap points name at replacement and returns the address it pointed at before.
	Swap(name string, replacement uintptr) (original uintptr, err error)

	// Restore points name back at original.
	Restore(name string, original uintptr) error
}

// Binding is one row of the table: a symbolic name, the replacement, and the
// trampoline to the original once installed.
type Binding struct {
	name        string
	replacement uintptr
	original    atomic.Uintptr
}

// Name returns the intercepted entry point name.
func (b *Binding) Name() string { return b.name }

// Original returns the address the replacement should chain to, or 0 before
// the first install. It stays valid after Uninstall so calls already inside a
// replacement can still complete.
func (b *Binding) Original() uintptr { return b.original.Load() }

// Table maps entry point names to replacements and installs them together.
type Table struct {
	mu        sync.Mutex
	patcher   Patcher
	bindings  []*Binding
	installed atomic.Bool
}

// NewTable creates an empty table over patcher.
func NewTable(patcher Patcher) *Table {
	return &Table{patcher: patcher}
}

// Add registers replacement for name. The returned binding exposes the
// original trampoline to the replacement.
func (t *Table) Add(name string, replacement uintptr) (*Binding, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.installed.Load() {
		return nil, ErrInstalled
	}
	for _, b := range t.bindings {
		if b.name == name {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEntry, name)
		}
	}

	b := &Binding{name: name, replacement: replacement}
	t.bindings = append(t.bindings, b)
	return b, nil
}

// Installed reports whether every binding is currently redirected.
func (t *Table) Installed() bool {
	return t.installed.Load()
}

// Install redirects every binding. If any swap fails the already swapped
// entries are restored in reverse order, so a partially installed table is
// never observable. A caller that finds the table busy gets ErrBusy and
// should simply retry later.
func (t *Table) Install() error {
	if !t.mu.TryLock() {
		return ErrBusy
	}
	defer t.mu.Unlock()

	if t.installed.Load() {
		return nil
	}

	for i, b := range t.bindings {
		original, err := t.patcher.Swap(b.name, b.replacement)
		if err != nil {
			rollbackErr := t.restore(t.bindings[:i])
			return errors.Join(fmt.Errorf("%w: %s: %w", ErrPartialInstall, b.name, err), rollbackErr)
		}
		b.original.Store(original)
	}

	t.installed.Store(true)
	return nil
}

// Uninstall restores every binding in reverse install order.
func (t *Table) Uninstall() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.installed.Load() {
		return nil
	}
	t.installed.Store(false)
	return t.restore(t.bindings)
}

func (t *Table) restore(bindings []*Binding) error {
	var errs []error
	for i := len(bindings) - 1; i >= 0; i-- {
		b := bindings[i]
		if err := t.patcher.Restore(b.name, b.original.Load()); err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", b.name, err))
		}
	}
	return errors.Join(errs...)
}
