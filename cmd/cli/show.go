package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sevigo/review-relay/internal/core"
	"github.com/sevigo/review-relay/internal/storage"
	"github.com/sevigo/review-relay/internal/wire"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <task-key>",
	Short: "Shows one stored review outcome in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		cli, cleanup, err := wire.InitializeCLI()
		if err != nil {
			return fmt.Errorf("failed to initialize cli services: %w", err)
		}
		defer cleanup()

		outcome, err := cli.Outcomes.GetOutcome(ctx, args[0])
		if err != nil {
			if errors.Is(err, storage.ErrOutcomeNotFound) {
				return fmt.Errorf("no outcome stored under %q", args[0])
			}
			return fmt.Errorf("failed to load outcome: %w", err)
		}

		if showJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(outcome)
		}

		return printOutcome(outcome)
	},
}

func printOutcome(o *core.ReviewOutcome) error {
	label := color.New(color.Bold).SprintFunc()

	fmt.Printf("%s %s\n", label("Task key:"), o.TaskKey)
	fmt.Printf("%s %s\n", label("Status:"), o.Status)
	fmt.Printf("%s %s #%d (%s)\n", label("Target:"), o.RepoFullName, o.Number, o.Provider)
	fmt.Printf("%s %s\n", label("Review type:"), o.ReviewType)
	fmt.Printf("%s %s\n", label("Created:"), o.CreatedAt.Format(time.RFC822))
	if o.Error != "" {
		fmt.Printf("%s %s\n", label("Error:"), color.RedString(o.Error))
	}

	if o.Summary != "" {
		fmt.Println()
		rendered, err := renderMarkdown(o.Summary)
		if err != nil {
			fmt.Println(o.Summary)
		} else {
			fmt.Print(rendered)
		}
	}

	if len(o.Comments) > 0 {
		fmt.Printf("\n%s\n", label(fmt.Sprintf("Comments (%d):", len(o.Comments))))
		for _, c := range o.Comments {
			where := "general"
			if c.FilePath != "" {
				where = c.FilePath
				if c.LineNumber > 0 {
					where = fmt.Sprintf("%s:%d", c.FilePath, c.LineNumber)
				}
			}
			fmt.Printf("  - [%s] %s\n", color.CyanString(where), c.Comment)
		}
	}
	return nil
}

func renderMarkdown(md string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(md)
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output the outcome as JSON")
	rootCmd.AddCommand(showCmd)
}
