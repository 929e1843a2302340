// Command demo ships a few sample log events to a local GELF collector
// while mirroring its own diagnostics to the terminal.
//
// Run a collector first, e.g. a Graylog UDP input on 12201, then:
//
//	go run ./demo
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/bitdabbler/gelf"
	"github.com/lmittmann/tint"
)

func main() {
	console := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelDebug}))
	slog.SetDefault(console)

	cfg := &gelf.Config{
		Host:        "127.0.0.1",
		Port:        12201,
		Application: "gelf-demo",
		Tags:        map[string]string{"env": "demo"},
	}

	client, err := gelf.NewClient(cfg, &gelf.ClientOptions{PoolSize: 2, Verbose: true})
	if err != nil {
		slog.Error("failed to start gelf client", "error", err)
		os.Exit(1)
	}

	shipper := slog.New(gelf.NewHandlerCustom(client, &gelf.HandlerOptions{AddSource: true}))

	shipper.Info("demo started", "pid", os.Getpid())
	shipper.WithGroup("req").Warn("slow request", "method", "GET", "elapsed", 1500*time.Millisecond)
	shipper.Error("demo failure", "attempt", 3)

	slog.Info("shipped 3 events; shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Shutdown(ctx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}
