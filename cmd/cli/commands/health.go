package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the server is up",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := getAPIClient(cmd)
		if err != nil {
			return err
		}
		status, err := c.HealthCheck(cmd.Context())
		if err != nil {
			return fmt.Errorf("server at %s is unhealthy: %w", serverAddress, err)
		}
		return printJSON(cmd, status)
	},
}
