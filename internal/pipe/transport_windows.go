//go:build windows

package pipe

import (
	"context"
	"net"

	"github.com/Microsoft/go-winio"
)

const pipeBufferSize = 1 << 16

// Name returns the named pipe path for prefix and tag.
func Name(prefix, tag string) string {
	return `\\.\pipe\` + prefix + tag
}

// Dial connects to the channel listening on name.
func Dial(ctx context.Context, name string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, name)
}

// Listen creates the channel server at name.
func Listen(name string) (net.Listener, error) {
	return winio.ListenPipe(name, &winio.PipeConfig{
		InputBufferSize:  pipeBufferSize,
		OutputBufferSize: pipeBufferSize,
	})
}
