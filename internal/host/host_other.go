//go:build !windows

package host

import (
	"go.uber.org/zap"

	"overlay/internal/osutils"
)

// DefaultDeps is only available on Windows.
func DefaultDeps(*zap.Logger) (Deps, error) {
	return Deps{}, osutils.ErrUnsupportedPlatform
}
