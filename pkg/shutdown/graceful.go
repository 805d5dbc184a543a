// Package shutdown stops long-lived helpers (such as the metrics listener)
// when a termination signal arrives.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"time"

	"sfbulk/pkg/logging"
)

type Stoppable interface {
	Shutdown(ctx context.Context) error
}

// Graceful blocks until one of the signals arrives, then shuts down every
// target within the timeout.
func Graceful(signals []os.Signal, timeout time.Duration, log *logging.Logger, targets ...Stoppable) {
	sigCtx, stop := signal.NotifyContext(context.Background(), signals...)
	defer stop()

	<-sigCtx.Done()
	log.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, target := range targets {
		if err := target.Shutdown(ctx); err != nil {
			log.Warn("graceful shutdown completed with error", "err", err)
		}
	}
}
