// healthbridge - historical health data backfill
//
// This is the main entry point for healthbridge. It imports daily health
// metrics from the Health Auto Export query server on a phone into a
// time-series database, newest day first, resuming where it left off.
//
// Subcommands:
//   - run:    one backfill pass, then exit
//   - daemon: wait for the phone, import whenever it is reachable
//   - status: show import progress
//   - reset:  forget all progress
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

func main() {
	// Cancel on Ctrl+C or SIGTERM; the engine finishes its current window.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}
