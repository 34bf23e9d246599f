package host

import (
	"sync"

	"go.uber.org/zap"

	"overlay/internal/protocol"
)

// StatusPresenter records what the renderer asked for. It stands in for a
// compositor and keeps the latest status and dirty rectangle.
type StatusPresenter struct {
	log *zap.Logger

	mu     sync.Mutex
	status protocol.Status
	paints uint64
	last   protocol.Paint
}

// NewStatusPresenter creates a presenter that logs at debug level.
func NewStatusPresenter(logger *zap.Logger) *StatusPresenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusPresenter{log: logger.Named("presenter")}
}

// Show implements relay.Presenter.
func (p *StatusPresenter) Show(st protocol.Status) {
	p.mu.Lock()
	p.status = st
	p.mu.Unlock()
	p.log.Debug("Overlay status", zap.Bool("show", st.Show), zap.Bool("shield", st.Shield))
}

// Paint implements relay.Presenter. The pixels are copied.
func (p *StatusPresenter) Paint(pt protocol.Paint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paints++
	p.last = pt
	p.last.Pixels = append(p.last.Pixels[:0:0], pt.Pixels...)
}

// Status returns the latest status.
func (p *StatusPresenter) Status() protocol.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// LastPaint returns the latest dirty rectangle and the number received.
func (p *StatusPresenter) LastPaint() (protocol.Paint, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.paints
}
