package grace

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// NewGracefulContext returns grace context that is cancelled by sigint,
// sigterm and sighup. The received signal is reported to w if it is not nil.
// The returned function stops listening and cancels the context.
func NewGracefulContext(w io.Writer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		select {
		case sig := <-ch:
			if w != nil {
				fmt.Fprintf(w, "received signal %s, stopping\n", sig)
			}
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(ch)
	}()

	return ctx, cancel
}
