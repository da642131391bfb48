package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pickstore/internal/client"
	"github.com/jpalmerr/pickstore/internal/docstate"
)

const defaultServer = "http://localhost:8080"

// getCmd reads a projection from a running server.
var getCmd = &cobra.Command{
	Use:   "get [path]",
	Short: "Read a projection from a running server",
	Long: `Read the value at a dot-notation path from a running pickstore server.
Without a path the whole document is printed.

Example:
  pickstore get
  pickstore get user.name --server http://localhost:9090`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGet,
}

// dispatchCmd sends one operation to a running server.
var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Send an operation to a running server",
	Long: `Send one document operation to a running pickstore server and print the
resulting document.

The value is parsed as JSON when possible and sent as a string otherwise.

Example:
  pickstore dispatch --op set --path user.name --value Grace
  pickstore dispatch --op merge --path user --value '{"theme":"light"}'
  pickstore dispatch --op incr --path count`,
	RunE: runDispatch,
}

func init() {
	for _, cmd := range []*cobra.Command{getCmd, dispatchCmd} {
		rootCmd.AddCommand(cmd)
		cmd.Flags().StringP("server", "s", defaultServer, "base URL of the pickstore server")
		cmd.Flags().Duration("timeout", 5*time.Second, "request timeout")
	}

	dispatchCmd.Flags().String("op", "", "operation: set, merge, delete, incr or replace (required)")
	dispatchCmd.Flags().String("path", "", "dot-notation target path")
	dispatchCmd.Flags().String("value", "", "operand, JSON or plain string")
	_ = dispatchCmd.MarkFlagRequired("op")
}

func newClient(cmd *cobra.Command) (*client.Client, error) {
	server, _ := cmd.Flags().GetString("server")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return client.New(server, timeout)
}

func runGet(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	var path string
	if len(args) == 1 {
		path = args[0]
	}

	value, err := c.State(cmd.Context(), path)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), value)
}

func runDispatch(cmd *cobra.Command, args []string) error {
	op := opFromFlags(cmd)
	if err := docstate.Validate(op); err != nil {
		return fmt.Errorf("invalid operation: %w", err)
	}

	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	doc, err := c.Dispatch(cmd.Context(), op)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), doc)
}

func opFromFlags(cmd *cobra.Command) docstate.Op {
	name, _ := cmd.Flags().GetString("op")
	path, _ := cmd.Flags().GetString("path")

	op := docstate.Op{Op: strings.ToLower(strings.TrimSpace(name)), Path: strings.TrimSpace(path)}
	if cmd.Flags().Changed("value") {
		raw, _ := cmd.Flags().GetString("value")
		op.Value = parseValue(raw)
	}
	return op
}

// parseValue decodes raw as JSON, falling back to the raw string.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
