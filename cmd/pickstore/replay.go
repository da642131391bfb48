package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pickstore"
	"github.com/jpalmerr/pickstore/config"
	"github.com/jpalmerr/pickstore/internal/docstate"
)

// replayCmd applies a scenario's actions and reports who was notified.
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Apply a scenario's actions and print notifications",
	Long: `Replay the actions of a scenario file against its initial state.

Each configured subscriber is bound to its projection before the first
action. After every action the command prints the subscribers that were
notified, with their projection before and after. Subscribers whose
projection is shallowly equal are skipped, so an action that rebuilds a
record with the same contents notifies nobody.

Output is deterministic and suitable for golden-file comparison.

Example:
  pickstore replay -c scenario.yaml
  pickstore replay -c scenario.yaml -v   # also log every dispatch`,
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringP("config", "c", "", "path to scenario file (required)")
	_ = replayCmd.MarkFlagRequired("config")
}

func runReplay(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	return replay(cmd.OutOrStdout(), cfg, newLogger(verbose))
}

// watcher is one subscriber bound to the replayed store.
type watcher struct {
	name    string
	binding *pickstore.Binding[docstate.Document, any]
	last    any
}

// replay applies cfg.Actions in order and writes a report to w.
func replay(w io.Writer, cfg *config.Config, logger *slog.Logger) error {
	st, err := config.BuildStore(cfg, pickstore.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	// notify runs synchronously inside Send, in registration order
	var fired []int
	watchers := make([]*watcher, len(cfg.Subscribers))
	for i, sub := range cfg.Subscribers {
		b := pickstore.PickStore[docstate.Document](st, func() { fired = append(fired, i) }, sub.Selector())
		defer b.Close()
		watchers[i] = &watcher{name: sub.Name, binding: b, last: b.Activate(nil)}
	}

	fmt.Fprintf(w, "store %s, nested dispatch %s\n", st.Name(), cfg.NestedPolicy())
	fmt.Fprintln(w, "initial")
	for _, wt := range watchers {
		fmt.Fprintf(w, "  %s = %s\n", wt.name, formatValue(wt.last))
	}

	var notified int
	for i, op := range cfg.Actions {
		fired = fired[:0]
		if err := st.Send(op); err != nil {
			return fmt.Errorf("action %d (%s): %w", i+1, op, err)
		}

		fmt.Fprintf(w, "#%d %s\n", i+1, op)
		if len(fired) == 0 {
			fmt.Fprintln(w, "  no subscribers notified")
			continue
		}
		for _, idx := range fired {
			wt := watchers[idx]
			next := wt.binding.Activate(nil)
			fmt.Fprintf(w, "  %s: %s -> %s\n", wt.name, formatValue(wt.last), formatValue(next))
			wt.last = next
		}
		notified += len(fired)
	}

	skipped := len(cfg.Actions)*len(watchers) - notified
	fmt.Fprintln(w, "final")
	fmt.Fprintf(w, "  %s\n", formatValue(st.Get()))
	fmt.Fprintf(w, "summary: %d actions, %d notified, %d skipped\n", len(cfg.Actions), notified, skipped)
	return nil
}

// formatValue renders a projection as compact JSON. Map keys are sorted by
// the encoder, which keeps the output stable.
func formatValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
