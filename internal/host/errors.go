package host

import "errors"

// ErrMissingDependency is returned when Attach is given an incomplete Deps.
var ErrMissingDependency = errors.New("host: missing dependency")
