// Command campus-market is a terminal client for the campus marketplace.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	root := newRootCmd()
	err := root.ExecuteContext(ctx)
	root.close()
	stop()

	if err != nil {
		os.Exit(1)
	}
}
