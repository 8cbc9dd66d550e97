package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"strava-export/internal/cli"
)

// version is set at build time via ldflags
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	return cli.Execute(ctx)
}
