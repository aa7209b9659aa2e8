package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/e7canasta/orion-strobe/internal/app"
	"github.com/e7canasta/orion-strobe/internal/command"
)

func main() {
	// Cancelling ctx tears down an active run: the sequencer stops, the
	// light returns to rest and the source is released.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cliApp := command.BuildApp(command.Deps{
		RunCapture: app.RunCapture,
		RunServe:   app.RunServe,
		RunProbe:   app.RunProbe,
	})

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "strobe-capture: %v\n", err)
		os.Exit(1)
	}
}
