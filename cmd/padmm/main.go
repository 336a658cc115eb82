// Package main provides the padmm CLI: benchmark solves and parameter
// searches for the proximal ADMM solvers.
package main

import (
	"context"
	"os"
	"os/signal"
)

const version = "v0.0.1-dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
