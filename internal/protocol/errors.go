package protocol

import "errors"

var (
	// ErrShortFrame is returned when a frame or payload is truncated.
	ErrShortFrame = errors.New("protocol: frame too short")

	// ErrUnknownType is returned for a frame type tag this package does not know.
	ErrUnknownType = errors.New("protocol: unknown frame type")

	// ErrFrameTooLarge is returned when a header announces more than MaxPayload bytes.
	ErrFrameTooLarge = errors.New("protocol: frame too large")

	// ErrRectOutOfBounds is returned when a paint sub-rectangle does not fit
	// inside the source framebuffer.
	ErrRectOutOfBounds = errors.New("protocol: paint rectangle out of bounds")

	// ErrWrongType is returned when a frame is decoded as the wrong variant.
	ErrWrongType = errors.New("protocol: wrong frame type")
)
