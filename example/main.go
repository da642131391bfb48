package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jpalmerr/pickstore"
	"github.com/jpalmerr/pickstore/dashboard"
	"github.com/jpalmerr/pickstore/internal/docstate"
	"github.com/jpalmerr/pickstore/internal/host"
	"github.com/jpalmerr/pickstore/internal/server"
)

func main() {
	logger := slog.Default()

	st, err := pickstore.NewWithReducer(docstate.Document{
		"services": map[string]any{},
		"ticks":    0.0,
	}, docstate.Reduce,
		pickstore.WithName("demo"),
		pickstore.WithLogger(logger),
	)
	if err != nil {
		slog.Error("failed to create store", "error", err)
		os.Exit(1)
	}

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loop := host.New(0, logger)
	loop.Start(ctx)
	defer loop.Stop()

	// a local subscriber that ignores ticks and only wakes on status changes
	services := pickstore.PickStore[docstate.Document](st, func() {
		logger.Info("services changed")
	}, pickstore.Select(docstate.Selector("services")))
	_ = loop.Do(ctx, func() { services.Activate(nil) })

	srv := server.NewServer(st, loop, server.Config{
		Port:   8080,
		Title:  "pickstore demo",
		Assets: dashboard.Assets,
		Logger: logger,
	})
	if err := srv.Start(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	// simulated writers (see writers.go)
	go RunWriters(ctx, loop, st)

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   pickstore Demo                                      ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:8080 in your browser          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Watch \"ticks\" or \"services.users\" and note that     ║")
	fmt.Println("  ║   each stream only wakes when its projection changes  ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	<-ctx.Done()
	<-srv.Done()
}
