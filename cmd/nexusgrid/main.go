// Nexus Grid - Signal Control Arbitration Engine
//
// This is the main entry point for the Nexus Grid core. It drives every
// signalised junction from one logical clock and arbitrates between the
// automatic phase cycle, operator overrides and emergency preemption.
//
// Collaborators reach the engine over MQTT (alert systems) and the HTTP and
// WebSocket API (dashboards, dispatcher consoles).
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
	// Cancel on Ctrl+C and SIGTERM for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
