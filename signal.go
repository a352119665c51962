package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// shutdownContext returns a context canceled by the first SIGINT/SIGTERM so
// the shell can leave its loop and close the session store cleanly. A second
// signal before stop is called exits immediately. stop releases the signal
// handler.
func shutdownContext(parent context.Context, logger *slog.Logger) (ctx context.Context, stop func()) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("interrupted, leaving", slog.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		case <-done:
			return
		}

		select {
		case sig := <-sigCh:
			logger.Warn("interrupted again, exiting now", slog.String("signal", sig.String()))
			os.Exit(1)
		case <-done:
		}
	}()

	stop = func() {
		close(done)
		cancel()
	}

	return ctx, stop
}
