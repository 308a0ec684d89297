package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sevigo/review-relay/internal/core"
	"github.com/sevigo/review-relay/internal/wire"
)

var (
	outcomesJSON  bool
	outcomesLimit int
)

var outcomesCmd = &cobra.Command{
	Use:   "outcomes",
	Short: "Lists the most recent review outcomes",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		cli, cleanup, err := wire.InitializeCLI()
		if err != nil {
			return fmt.Errorf("failed to initialize cli services: %w", err)
		}
		defer cleanup()

		outcomes, err := cli.Outcomes.ListOutcomes(ctx, outcomesLimit)
		if err != nil {
			return fmt.Errorf("failed to list outcomes: %w", err)
		}

		if outcomesJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(outcomes)
		}

		if len(outcomes) == 0 {
			fmt.Println("No review outcomes stored yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "TASK KEY\tSTATUS\tREPO\tTARGET\tCOMMENTS\tCREATED")
		for _, o := range outcomes {
			fmt.Fprintf(w, "%s\t%s\t%s\t#%d\t%d\t%s\n",
				o.TaskKey,
				o.Status,
				o.RepoFullName,
				o.Number,
				len(o.Comments),
				o.CreatedAt.Format(time.RFC822),
			)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Println()
		fmt.Println(statusTotals(outcomes))
		return nil
	},
}

// statusTotals renders a colored one-line summary of the listed outcomes.
func statusTotals(outcomes []*core.ReviewOutcome) string {
	counts := make(map[core.OutcomeStatus]int)
	for _, o := range outcomes {
		counts[o.Status]++
	}

	parts := make([]string, 0, len(counts))
	for _, status := range []core.OutcomeStatus{
		core.OutcomeCompleted,
		core.OutcomeFailed,
		core.OutcomeErrorCallingLLM,
		core.OutcomeErrorPostingComment,
	} {
		n := counts[status]
		if n == 0 {
			continue
		}
		switch status {
		case core.OutcomeCompleted:
			parts = append(parts, color.GreenString("%d %s", n, status))
		case core.OutcomeFailed:
			parts = append(parts, color.RedString("%d %s", n, status))
		default:
			parts = append(parts, color.YellowString("%d %s", n, status))
		}
	}

	out := fmt.Sprintf("%d outcomes", len(outcomes))
	for _, p := range parts {
		out += "  " + p
	}
	return out
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	outcomesCmd.Flags().BoolVar(&outcomesJSON, "json", false, "Output outcomes as JSON")
	outcomesCmd.Flags().IntVar(&outcomesLimit, "limit", 20, "Maximum number of outcomes to list")
	rootCmd.AddCommand(outcomesCmd)
}
