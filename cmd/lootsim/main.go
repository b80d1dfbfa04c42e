// Package main provides lootsim, a command-line tool that validates loot
// content, prints resolved weight maps and simulates draws.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "lootsim:", err)
		os.Exit(1)
	}
}
