package pipe

import "errors"

var (
	// ErrEmpty is returned by Pull when no frame is waiting.
	ErrEmpty = errors.New("pipe: no frame available")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("pipe: closed")
)
