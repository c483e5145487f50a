package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anudishu/promote-cleanup/internal/events"
	"github.com/anudishu/promote-cleanup/internal/messaging"
	"github.com/anudishu/promote-cleanup/internal/workflow"
)

// publisher is the part of messaging.Bus used to queue an event
type publisher interface {
	Publish(ctx context.Context, subj string, v any) error
	Close()
}

// newPublisher connects to NATS; tests replace it
var newPublisher = func(url string) (publisher, error) {
	bus, err := messaging.New(url)
	if err != nil {
		return nil, err
	}
	return bus, nil
}

func init() {
	publishCmd.Flags().String(flagImageID, "", "Image ID the promoted image is named after")
	publishCmd.Flags().String(flagScanResult, "", "Scan verdict; only \"Pass\" proceeds")
	publishCmd.Flags().String(flagInstance, "", "Validation instance to promote from and delete")
	publishCmd.Flags().Bool(flagSkipDestroy, false, "Keep the validation instance")
	publishCmd.Flags().Bool(flagSkipPromotion, false, "Do not create an image")
	publishCmd.Flags().String("nats-url", "", "NATS server to publish to")
	publishCmd.Flags().String("nats-subject", "", "Subject the server consumes")
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Queue a validation result on NATS for the server to process",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if cfg.NATSURL == "" {
			return fmt.Errorf("no NATS server configured; set --nats-url or PROMOTE_NATS_URL")
		}

		req := workflow.Request{}
		req.ImageID, _ = cmd.Flags().GetString(flagImageID)
		scan, _ := cmd.Flags().GetString(flagScanResult)
		req.ScanResult = workflow.ScanResult(scan)
		req.ValidationInstance, _ = cmd.Flags().GetString(flagInstance)
		req.SkipDestroy, _ = cmd.Flags().GetBool(flagSkipDestroy)
		req.SkipPromotion, _ = cmd.Flags().GetBool(flagSkipPromotion)

		bus, err := newPublisher(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer bus.Close()

		msg := events.Message{Attributes: events.Attributes(req)}
		if err := bus.Publish(cmd.Context(), cfg.NATSSubject, msg); err != nil {
			return fmt.Errorf("failed to publish to %s: %w", cfg.NATSSubject, err)
		}
		return printJSON(cmd, map[string]string{"status": "queued", "subject": cfg.NATSSubject})
	},
}
