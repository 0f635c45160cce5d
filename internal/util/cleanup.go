package util

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// SetupInterruptHandler returns a context cancelled on the first SIGINT or
// SIGTERM. A second signal exits immediately.
func SetupInterruptHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sig:
			fmt.Println("\nInterrupt received. Finishing in-flight pages...")
			cancel()
		case <-ctx.Done():
			signal.Stop(sig)
			return
		}

		<-sig
		fmt.Println("\nExiting due to interrupt.")
		os.Exit(1)
	}()

	return ctx, func() {
		signal.Stop(sig)
		cancel()
	}
}
