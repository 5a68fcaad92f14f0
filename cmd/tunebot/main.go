package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// version is set at build time via ldflags:
// go build -ldflags "-X main.version=1.0.0" ./cmd/tunebot
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newApp(os.Stdout).Run(ctx, os.Args)
	stop()
	if err != nil {
		slog.Error("failed to run", "error", err)
		os.Exit(1)
	}
}
