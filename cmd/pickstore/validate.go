package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pickstore/config"
)

// validateCmd validates a scenario file without running it.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a scenario file",
	Long: `Validate a pickstore scenario file without serving or replaying it.

This command parses the YAML or TOML, expands environment variables, and
validates the nested dispatch policy, subscriber paths and every action.
It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Scenario is valid
  1 - Scenario is invalid (error details printed to stderr)

Example:
  pickstore validate -c scenario.yaml
  pickstore validate --config /etc/pickstore/scenario.toml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to scenario file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Store:           %s\n", cfg.Name)
	fmt.Fprintf(out, "  Port:            %d\n", cfg.Port)
	fmt.Fprintf(out, "  Nested dispatch: %s\n", cfg.NestedPolicy())
	fmt.Fprintf(out, "  State keys:      %d\n", len(cfg.State))
	fmt.Fprintf(out, "  Subscribers:     %d\n", len(cfg.Subscribers))
	fmt.Fprintf(out, "  Actions:         %d\n", len(cfg.Actions))

	return nil
}
