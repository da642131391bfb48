// Package main is the entry point for the pickstore CLI.
//
// The pickstore library is usually embedded in another program. This CLI
// hosts a document store described by a scenario file, replays scenarios for
// inspection, and talks to a running server.
//
// Usage:
//
//	pickstore serve -c scenario.yaml            # Serve the store over HTTP
//	pickstore replay -c scenario.yaml           # Apply actions, print notifications
//	pickstore validate -c scenario.yaml         # Validate a scenario
//	pickstore get user.name                     # Read a projection from a server
//	pickstore dispatch --op incr --path count   # Send an operation to a server
//	pickstore version                           # Show version info
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "pickstore",
	Short: "A minimal external store with selective subscriptions",
	Long: `pickstore holds one value, applies actions to it, and notifies only the
subscribers whose selected projection changed.

Quick start:
  1. Create a scenario file (scenario.yaml)
  2. Run: pickstore replay -c scenario.yaml
  3. Or serve it: pickstore serve -c scenario.yaml

Example scenario:
  state:
    user: {name: Ada}
    count: 0
  subscribers:
    - name: name-view
      select: user.name
  actions:
    - op: incr
      path: count`,
	SilenceUsage: true,
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// newLogger creates a JSON logger for CLI use. Verbose lowers the level to
// debug, which includes one record per dispatch.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this pickstore binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "pickstore %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log every dispatch at debug level")
}
