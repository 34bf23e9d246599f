package osutils

import "errors"

// ErrUnsupportedPlatform is returned when running on an OS without window hooks.
var ErrUnsupportedPlatform = errors.New("unsupported platform")
