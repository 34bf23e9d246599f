package relay

import "errors"

var (
	// ErrPipe is returned when the overlay channel fails.
	ErrPipe = errors.New("relay: pipe failure")

	// ErrInvalidParams is returned for a zero-sized render surface.
	ErrInvalidParams = errors.New("relay: invalid parameters")

	// ErrRunning is returned when Run is entered twice.
	ErrRunning = errors.New("relay: loop already running")
)
