package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sevigo/review-relay/internal/core"
	"github.com/sevigo/review-relay/internal/wire"
)

var (
	enqueueProvider   string
	enqueueEventID    string
	enqueueReviewType string
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <payload.json>",
	Short: "Places a provider payload directly onto the task stream",
	Long: `Reads a webhook payload from a file and enqueues it as a review task,
bypassing signature verification and the dedup window. Useful for replaying an
event that was lost downstream or for feeding the pipeline during development.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		body, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read payload file: %w", err)
		}
		if !json.Valid(body) {
			return fmt.Errorf("%s is not valid JSON", args[0])
		}

		prov, err := core.ParseProvider(enqueueProvider)
		if err != nil {
			return err
		}

		cli, cleanup, err := wire.InitializeCLI()
		if err != nil {
			return fmt.Errorf("failed to initialize cli services: %w", err)
		}
		defer cleanup()

		strategy, err := cli.Registry.ForProvider(prov)
		if err != nil {
			return err
		}

		eventID := enqueueEventID
		if eventID == "" {
			eventID = strategy.DeriveEventID(http.Header{}, body)
		}

		task := &core.QueuedTask{
			Provider: prov,
			EventID:  eventID,
			Payload:  body,
		}
		switch core.ReviewType(enqueueReviewType) {
		case core.ReviewDetailed, core.ReviewGeneral:
			task.ReviewType = core.ReviewType(enqueueReviewType)
		case "":
		default:
			return fmt.Errorf("unknown review type %q", enqueueReviewType)
		}

		var ext struct {
			FilesToReview []core.ReviewFile `json:"filesToReview"`
		}
		if err := json.Unmarshal(body, &ext); err == nil {
			task.FilesToReview = ext.FilesToReview
		}

		if err := cli.Producer.Enqueue(ctx, task); err != nil {
			return fmt.Errorf("failed to enqueue task: %w", err)
		}

		fmt.Printf("%s event %s enqueued for %s\n", color.GreenString("ok:"), eventID, prov)
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	enqueueCmd.Flags().StringVar(&enqueueProvider, "provider", "", "Source provider of the payload (github or gitlab)")
	enqueueCmd.Flags().StringVar(&enqueueEventID, "event-id", "", "Event id to enqueue under (derived from the payload when empty)")
	enqueueCmd.Flags().StringVar(&enqueueReviewType, "review-type", "", "Review depth override (detailed or general)")
	_ = enqueueCmd.MarkFlagRequired("provider")
	rootCmd.AddCommand(enqueueCmd)
}
