//go:build !windows

package pipe

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"os"
	"path/filepath"
)

// Name returns the unix socket path for prefix and tag.
func Name(prefix, tag string) string {
	return filepath.Join(os.TempDir(), prefix+tag+".sock")
}

// Dial connects to the channel listening on name.
func Dial(ctx context.Context, name string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", name)
}

// Listen creates the channel server at name, replacing a stale socket file.
func Listen(name string) (net.Listener, error) {
	if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return net.Listen("unix", name)
}
