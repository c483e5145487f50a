package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anudishu/promote-cleanup/internal/db/models"
)

// Flag names
const (
	flagLimit  = "limit"
	flagOffset = "offset"
	flagStatus = "status"
)

// runOutput is the filtered view of a recorded run
type runOutput struct {
	RunID              string `json:"run_id"`
	Source             string `json:"source"`
	ImageID            string `json:"image_id,omitempty"`
	ValidationInstance string `json:"validation_instance,omitempty"`
	Status             string `json:"status"`
	PromotedImage      string `json:"promoted_image,omitempty"`
	SkipReason         string `json:"skip_reason,omitempty"`
	Error              string `json:"error,omitempty"`
}

// runListOutput is the filtered view of a list of runs
type runListOutput struct {
	Runs []runOutput `json:"runs"`
}

func toRunOutput(r models.Run) runOutput {
	return runOutput{
		RunID:              r.RunID,
		Source:             r.Source,
		ImageID:            r.ImageID,
		ValidationInstance: r.ValidationInstance,
		Status:             r.Status.String(),
		PromotedImage:      r.PromotedImage,
		SkipReason:         r.SkipReason,
		Error:              r.Error,
	}
}

func init() {
	runsCmd.AddCommand(listRunsCmd, getRunCmd)

	listRunsCmd.Flags().Int(flagLimit, models.DefaultLimit, "Maximum number of runs to list")
	listRunsCmd.Flags().Int(flagOffset, 0, "Number of runs to skip")
	listRunsCmd.Flags().String(flagStatus, "", "Only list runs with this status")
	listRunsCmd.Flags().String(flagInstance, "", "Only list runs for this validation instance")
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect runs recorded by the server",
}

var listRunsCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts := &models.ListOptions{}
		opts.Limit, _ = cmd.Flags().GetInt(flagLimit)
		opts.Offset, _ = cmd.Flags().GetInt(flagOffset)
		opts.ValidationInstance, _ = cmd.Flags().GetString(flagInstance)
		if s, _ := cmd.Flags().GetString(flagStatus); s != "" {
			status, err := models.ParseRunStatus(s)
			if err != nil {
				return err
			}
			opts.Status = &status
		}

		c, err := getAPIClient(cmd)
		if err != nil {
			return err
		}
		runs, err := c.ListRuns(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("error listing runs: %w", err)
		}

		out := runListOutput{Runs: make([]runOutput, 0, len(runs))}
		for _, r := range runs {
			out.Runs = append(out.Runs, toRunOutput(r))
		}
		return printJSON(cmd, out)
	},
}

var getRunCmd = &cobra.Command{
	Use:   "get <run-id>",
	Short: "Show one recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getAPIClient(cmd)
		if err != nil {
			return err
		}
		run, err := c.GetRun(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error getting run: %w", err)
		}
		return printJSON(cmd, toRunOutput(*run))
	},
}
