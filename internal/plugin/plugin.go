// Package plugin manages the overlay modules that run inside the renderer.
package plugin

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"overlay/internal/relay"
)

var (
	// ErrIncomplete is returned for a module without Load or Unload.
	ErrIncomplete = errors.New("plugin: module must provide Load and Unload")

	// ErrDuplicate is returned when a name is registered twice.
	ErrDuplicate = errors.New("plugin: duplicate module name")

	// ErrUnknown is returned when a requested module is not registered.
	ErrUnknown = errors.New("plugin: unknown module")
)

// Module is one overlay plugin. Load typically registers watchers on the
// renderer and Unload removes them.
type Module struct {
	Name   string
	Load   func(r relay.Renderer) error
	Unload func(r relay.Renderer)
}

func (m Module) complete() bool {
	return m.Name != "" && m.Load != nil && m.Unload != nil
}

// Catalog holds the modules available to the renderer.
type Catalog struct {
	mu      sync.Mutex
	modules map[string]Module
}

var defaultCatalog = &Catalog{}

// Register adds m to the process-wide catalog. Built-in plugins call it
// from init.
func Register(m Module) error {
	return defaultCatalog.Register(m)
}

// Default returns the process-wide catalog.
func Default() *Catalog {
	return defaultCatalog
}

// Register adds m to c.
func (c *Catalog) Register(m Module) error {
	if !m.complete() {
		return fmt.Errorf("%w: %q", ErrIncomplete, m.Name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.modules == nil {
		c.modules = make(map[string]Module)
	}
	if _, ok := c.modules[m.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicate, m.Name)
	}
	c.modules[m.Name] = m
	return nil
}

// Names returns the registered module names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.modules))
	for name := range c.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select returns the named modules in the order given. An empty list
// selects every registered module in name order.
func (c *Catalog) Select(names []string) ([]Module, error) {
	if len(names) == 0 {
		names = c.Names()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Module, 0, len(names))
	var errs []error
	for _, name := range names {
		m, ok := c.modules[name]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknown, name))
			continue
		}
		out = append(out, m)
	}
	return out, errors.Join(errs...)
}

// Registry tracks the modules loaded into one renderer.
type Registry struct {
	log    *zap.Logger
	loaded []Module
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{log: logger.Named("plugin")}
}

// LoadAll loads modules in order. Incomplete modules are left out; a module
// whose Load fails is unloaded straight away so nothing it registered stays
// behind. The others keep running.
func (r *Registry) LoadAll(target relay.Renderer, modules []Module) {
	for _, m := range modules {
		if !m.complete() {
			r.log.Warn("Skipping incomplete module", zap.String("module", m.Name))
			continue
		}
		if err := m.Load(target); err != nil {
			r.log.Warn("Module failed to load", zap.String("module", m.Name), zap.Error(err))
			m.Unload(target)
			continue
		}
		r.log.Info("Module loaded", zap.String("module", m.Name))
		r.loaded = append(r.loaded, m)
	}
}

// Loaded returns the names of the loaded modules in load order.
func (r *Registry) Loaded() []string {
	names := make([]string, len(r.loaded))
	for i, m := range r.loaded {
		names[i] = m.Name
	}
	return names
}

// UnloadAll unloads every loaded module in reverse load order.
func (r *Registry) UnloadAll(target relay.Renderer) {
	for i := len(r.loaded) - 1; i >= 0; i-- {
		m := r.loaded[i]
		m.Unload(target)
		r.log.Info("Module unloaded", zap.String("module", m.Name))
	}
	r.loaded = nil
}
