package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/citeseek/citeseek/internal/adapters/driving/cli"
)

// Version information (set by the release build).
var version = "dev"

func main() {
	cli.SetVersion(version)

	// Ctrl+C cancels the command context, which is how watch mode
	// and long generations are interrupted.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
