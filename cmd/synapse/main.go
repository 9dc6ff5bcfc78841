// Command synapse compiles annotated schema sets.
//
// Usage:
//
//	synapse compile --config synapse.yaml
//	synapse plan -i schema/blog.yaml
//	synapse sdl --watch
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
