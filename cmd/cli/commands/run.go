package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anudishu/promote-cleanup/internal/events"
	"github.com/anudishu/promote-cleanup/internal/workflow"
)

// Flag names
const (
	flagImageID       = "image-id"
	flagScanResult    = "scan-result"
	flagInstance      = "instance"
	flagSkipDestroy   = "skip-destroy"
	flagSkipPromotion = "skip-promotion"
	flagRemote        = "remote"
)

func init() {
	runCmd.Flags().String(flagImageID, "", "Image ID the promoted image is named after")
	runCmd.Flags().String(flagScanResult, "", "Scan verdict; only \"Pass\" proceeds")
	runCmd.Flags().String(flagInstance, "", "Validation instance to promote from and delete")
	runCmd.Flags().Bool(flagSkipDestroy, false, "Keep the validation instance")
	runCmd.Flags().Bool(flagSkipPromotion, false, "Do not create an image")
	runCmd.Flags().Bool(flagRemote, false, "Run through the server instead of in process")

	promoteCmd.Flags().String(flagImageID, "", "Image ID the promoted image is named after")
	promoteCmd.Flags().String(flagInstance, "", "Validation instance to snapshot")
	promoteCmd.Flags().Bool(flagRemote, false, "Run through the server instead of in process")
	for _, f := range []string{flagImageID, flagInstance} {
		if err := promoteCmd.MarkFlagRequired(f); err != nil {
			panic(fmt.Errorf("failed to mark %s flag as required for promote command: %w", f, err))
		}
	}

	reapCmd.Flags().String(flagInstance, "", "Validation instance to delete")
	reapCmd.Flags().Bool(flagRemote, false, "Run through the server instead of in process")
	if err := reapCmd.MarkFlagRequired(flagInstance); err != nil {
		panic(fmt.Errorf("failed to mark instance flag as required for reap command: %w", err))
	}
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full workflow for one validation result",
	RunE: func(cmd *cobra.Command, _ []string) error {
		req := workflow.Request{}
		req.ImageID, _ = cmd.Flags().GetString(flagImageID)
		scan, _ := cmd.Flags().GetString(flagScanResult)
		req.ScanResult = workflow.ScanResult(scan)
		req.ValidationInstance, _ = cmd.Flags().GetString(flagInstance)
		req.SkipDestroy, _ = cmd.Flags().GetBool(flagSkipDestroy)
		req.SkipPromotion, _ = cmd.Flags().GetBool(flagSkipPromotion)
		return execute(cmd, req)
	},
}

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Promote an instance's boot disk to an image and keep the instance",
	RunE: func(cmd *cobra.Command, _ []string) error {
		imageID, _ := cmd.Flags().GetString(flagImageID)
		instance, _ := cmd.Flags().GetString(flagInstance)
		return execute(cmd, workflow.Request{
			ImageID:            imageID,
			ScanResult:         workflow.ScanPass,
			ValidationInstance: instance,
			SkipDestroy:        true,
		})
	},
}

var reapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Delete a validation instance without promoting it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		instance, _ := cmd.Flags().GetString(flagInstance)
		return execute(cmd, workflow.Request{
			ScanResult:         workflow.ScanPass,
			ValidationInstance: instance,
			SkipPromotion:      true,
		})
	},
}

// execute runs req in process or, with --remote, through the server, and prints the result
func execute(cmd *cobra.Command, req workflow.Request) error {
	remote, _ := cmd.Flags().GetBool(flagRemote)

	var (
		res *workflow.Result
		err error
	)
	if remote {
		res, err = executeRemote(cmd, req)
	} else {
		res, err = executeLocal(cmd, req)
	}
	if err != nil {
		return err
	}
	return printJSON(cmd, res)
}

func executeRemote(cmd *cobra.Command, req workflow.Request) (*workflow.Result, error) {
	c, err := getAPIClient(cmd)
	if err != nil {
		return nil, err
	}
	res, err := c.PublishEvent(cmd.Context(), events.Message{Attributes: events.Attributes(req)})
	if err != nil {
		return nil, fmt.Errorf("error running workflow: %w", err)
	}
	return res, nil
}

func executeLocal(cmd *cobra.Command, req workflow.Request) (*workflow.Result, error) {
	a, _, err := localApp(cmd)
	if err != nil {
		return nil, err
	}
	defer func() { _ = a.Close() }()

	return a.Service.Execute(cmd.Context(), events.SourceCLI, req)
}
