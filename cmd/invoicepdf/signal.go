package main

import (
	"context"
	"os/signal"
)

// notifyContext derives the command context. A shutdown signal cancels it:
// export stops handing inputs to workers and lets running exports unwind,
// serve stops accepting requests and drains the open ones.
func notifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, shutdownSignals...)
}
