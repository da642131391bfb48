package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/pickstore"
	"github.com/jpalmerr/pickstore/config"
	"github.com/jpalmerr/pickstore/dashboard"
	"github.com/jpalmerr/pickstore/internal/host"
	"github.com/jpalmerr/pickstore/internal/server"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts the HTTP server for a scenario's store.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a document store over HTTP",
	Long: `Serve the document store described by a scenario file.

The server will:
  - Load the initial state and nested dispatch policy from the scenario
  - Serve the inspector page, state reads, dispatches and SSE projections
  - Expose Prometheus metrics at /metrics

Scenario actions are not applied; use "pickstore replay" for that.
The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  pickstore serve -c scenario.yaml
  pickstore serve --config /etc/pickstore/scenario.toml --port 9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to scenario file (required)")
	serveCmd.Flags().IntP("port", "p", 0, "override the configured port")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := newLogger(verbose)

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Port = port
	}

	logger.Info("config loaded",
		"store", cfg.Name,
		"nested_dispatch", cfg.NestedPolicy().String(),
		"keys", len(cfg.State),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	st, err := config.BuildStore(cfg, pickstore.WithLogger(logger), pickstore.WithMetrics(reg))
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loop := host.New(0, logger)
	loop.Start(ctx)
	defer loop.Stop()

	srv := server.NewServer(st, loop, server.Config{
		Port:    cfg.Port,
		Title:   cfg.Title,
		Assets:  dashboard.Assets,
		Metrics: reg,
		Logger:  logger,
	})
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("server started", "addr", srv.Addr().String())

	<-ctx.Done()

	// signal received, wait for graceful shutdown with timeout
	select {
	case <-srv.Done():
		logger.Info("shutdown complete")
	case <-time.After(shutdownTimeout):
		logger.Warn("shutdown timed out",
			"timeout", shutdownTimeout.String(),
			"action", "forcing exit",
		)
	}
	return nil
}
