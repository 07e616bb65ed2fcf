package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// WithSignals returns a context cancelled on SIGINT or SIGTERM, or when the
// returned cancel func is called.
func WithSignals(parent context.Context) (context.Context, context.CancelFunc) {
	return withNotify(parent, signal.Notify, signal.Stop)
}

func withNotify(
	parent context.Context,
	notify func(chan<- os.Signal, ...os.Signal),
	stop func(chan<- os.Signal),
) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	ch := make(chan os.Signal, 1)
	notify(ch, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer stop(ch)
		select {
		case <-ctx.Done():
			return
		case <-ch:
			cancel()
		}
	}()

	return ctx, cancel
}
