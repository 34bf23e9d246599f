// Overlay renderer: connects to a hooked host, loads the overlay plugins and
// relays the host's input to them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"overlay/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	observability.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
