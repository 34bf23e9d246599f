// Package tray provides the renderer's optional system tray menu using
// getlantern/systray.
package tray

import (
	"context"
	"sync"

	"github.com/getlantern/systray"
	"go.uber.org/zap"
)

// MenuItem represents a menu item.
type MenuItem struct {
	ID        int
	Title     string
	Tooltip   string
	Checkable bool
	Callback  func()

	checked bool
	item    *systray.MenuItem
}

// Tray manages the system tray icon and menu. Items must be added before Run.
type Tray struct {
	title   string
	tooltip string
	log     *zap.Logger

	mu    sync.Mutex
	items []*MenuItem

	readyCh chan struct{}
	quitCh  chan struct{}
}

// New creates a tray with the given title and tooltip.
func New(title, tooltip string, logger *zap.Logger) *Tray {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tray{
		title:   title,
		tooltip: tooltip,
		log:     logger.Named("tray"),
		readyCh: make(chan struct{}),
		quitCh:  make(chan struct{}),
	}
}

// AddMenuItem adds a clickable item and returns its id.
func (t *Tray) AddMenuItem(title, tooltip string, callback func()) int {
	return t.add(&MenuItem{Title: title, Tooltip: tooltip, Callback: callback})
}

// AddCheckbox adds an item that shows a check mark.
func (t *Tray) AddCheckbox(title string, checked bool, callback func()) int {
	return t.add(&MenuItem{Title: title, Checkable: true, checked: checked, Callback: callback})
}

func (t *Tray) add(mi *MenuItem) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	mi.ID = len(t.items)
	t.items = append(t.items, mi)
	return mi.ID
}

// AddSeparator adds a separator to the menu.
func (t *Tray) AddSeparator() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, nil) // nil indicates separator
}

// SetItemChecked sets the checked state of a menu item. It may be called
// before the tray is ready; the state is applied when the menu is built.
func (t *Tray) SetItemChecked(id int, checked bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id < 0 || id >= len(t.items) || t.items[id] == nil {
		return
	}
	mi := t.items[id]
	mi.checked = checked
	if mi.item == nil {
		return
	}
	if checked {
		mi.item.Check()
	} else {
		mi.item.Uncheck()
	}
}

// Checked reports the checked state of a menu item.
func (t *Tray) Checked(id int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id < 0 || id >= len(t.items) || t.items[id] == nil {
		return false
	}
	return t.items[id].checked
}

// Click runs the callback of item id as if it had been clicked.
func (t *Tray) Click(id int) {
	t.mu.Lock()
	var cb func()
	if id >= 0 && id < len(t.items) && t.items[id] != nil {
		cb = t.items[id].Callback
	}
	t.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// Ready is closed once the menu is built.
func (t *Tray) Ready() <-chan struct{} { return t.readyCh }

// Done is closed when the tray loop exits.
func (t *Tray) Done() <-chan struct{} { return t.quitCh }

// Run starts the tray event loop and blocks until ctx is done or Stop is
// called. On Windows and macOS it must run on the main goroutine.
func (t *Tray) Run(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			systray.Quit()
		case <-t.quitCh:
		}
	}()
	systray.Run(t.setupMenu, func() { close(t.quitCh) })
}

// setupMenu is called when systray is ready.
func (t *Tray) setupMenu() {
	systray.SetTitle(t.title)
	systray.SetTooltip(t.tooltip)
	systray.SetIcon(getIcon())

	t.mu.Lock()
	for _, mi := range t.items {
		if mi == nil {
			systray.AddSeparator()
			continue
		}
		if mi.Checkable {
			mi.item = systray.AddMenuItemCheckbox(mi.Title, mi.Tooltip, mi.checked)
		} else {
			mi.item = systray.AddMenuItem(mi.Title, mi.Tooltip)
		}
		if mi.Callback != nil {
			go t.watch(mi.ID, mi.item.ClickedCh)
		}
	}
	t.mu.Unlock()

	t.log.Debug("Tray ready", zap.Int("items", len(t.items)))
	close(t.readyCh)
}

func (t *Tray) watch(id int, clicked <-chan struct{}) {
	for {
		select {
		case <-clicked:
			t.Click(id)
		case <-t.quitCh:
			return
		}
	}
}

// Stop stops the tray.
func (t *Tray) Stop() {
	systray.Quit()
}
