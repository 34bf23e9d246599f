package host

import (
	"sync"

	"go.uber.org/zap"

	"overlay/internal/intercept"
)

// CursorEntryPoints are the host imports redirected while the shield is up.
var CursorEntryPoints = []string{"GetCursorPos", "SetCursorPos"}

// CursorShield redirects the host's own cursor queries while the overlay owns
// the cursor, so the host neither sees the pinned cursor nor moves it.
type CursorShield struct {
	log    *zap.Logger
	table  *intercept.Table
	freeze func()

	mu     sync.Mutex
	active bool
}

// NewCursorShield builds a shield from replacement addresses keyed by entry
// point name. freeze, if set, runs just before the redirection goes live.
func NewCursorShield(p intercept.Patcher, stubs map[string]uintptr, freeze func(), logger *zap.Logger) (*CursorShield, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	table := intercept.NewTable(p)
	for _, name := range CursorEntryPoints {
		addr, ok := stubs[name]
		if !ok {
			return nil, ErrMissingDependency
		}
		if _, err := table.Add(name, addr); err != nil {
			return nil, err
		}
	}
	return &CursorShield{log: logger.Named("shield"), table: table, freeze: freeze}, nil
}

// Active reports whether the shield is up.
func (s *CursorShield) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// StartShield implements input.Shield.
func (s *CursorShield) StartShield() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	if s.freeze != nil {
		s.freeze()
	}
	if err := s.table.Install(); err != nil {
		s.log.Warn("Shield install failed", zap.Error(err))
		return
	}
	s.active = true
}

// EndShield implements input.Shield.
func (s *CursorShield) EndShield() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	if err := s.table.Uninstall(); err != nil {
		s.log.Warn("Shield uninstall failed", zap.Error(err))
	}
	s.active = false
}

// Close drops the shield. A host detaching mid-capture must not leave the
// cursor imports redirected.
func (s *CursorShield) Close() error {
	s.EndShield()
	return nil
}
