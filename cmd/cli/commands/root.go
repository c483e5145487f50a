// Package commands implements the promote-cleanup command line
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anudishu/promote-cleanup/config"
	"github.com/anudishu/promote-cleanup/internal/api/v1/client"
	"github.com/anudishu/promote-cleanup/internal/api/v1/routes"
	"github.com/anudishu/promote-cleanup/internal/app"
	"github.com/anudishu/promote-cleanup/internal/logger"
)

// flag names
const (
	flagServerAddress = "server-address"
	flagTimeout       = "timeout"
)

// environment variable names
const (
	envServerAddress = "PROMOTE_SERVER_ADDRESS"
)

var (
	// clientInstance is the shared API client; tests replace it
	clientInstance client.Client
	// serverAddress holds the target API server address. Flag parsing sets this.
	serverAddress string

	// loadConfig and newApp build the local workflow; tests replace them
	loadConfig = loadConfigFromFlags
	newApp     = app.New
)

// configFlags are the configuration keys a command line flag of the same name overrides
var configFlags = []string{"provider", "project", "zone", "nats-url", "nats-subject"}

func init() {
	RootCmd.PersistentFlags().StringVarP(&serverAddress, flagServerAddress, "s", routes.DefaultBaseURL, "Address of the promote-cleanup server (env: "+envServerAddress+")")
	RootCmd.PersistentFlags().Duration(flagTimeout, client.DefaultTimeout, "Timeout of requests to the server")
	RootCmd.PersistentFlags().String("provider", "", "Compute backend for local runs (gcp, digitalocean, mock)")
	RootCmd.PersistentFlags().String("project", "", "Project for local runs")
	RootCmd.PersistentFlags().String("zone", "", "Zone for local runs")

	RootCmd.AddCommand(runCmd, promoteCmd, reapCmd, publishCmd, runsCmd, healthCmd)
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "promote-cleanup",
	Short: "Promote validated VM images and clean up validation instances",
	Long: `promote-cleanup runs the image promotion workflow locally against the configured
compute backend, or remotely through a promote-cleanup server.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		logger.InitializeAndConfigure()

		// Flag > env var > default
		if !cmd.Flags().Changed(flagServerAddress) {
			if envAddr := os.Getenv(envServerAddress); envAddr != "" {
				serverAddress = envAddr
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// Interrupting the command cancels the running workflow.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RootCmd.ExecuteContext(ctx)
}

// getAPIClient returns the API client, creating it on first use
func getAPIClient(cmd *cobra.Command) (client.Client, error) {
	if clientInstance != nil {
		return clientInstance, nil
	}
	if serverAddress == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}

	timeout, _ := cmd.Flags().GetDuration(flagTimeout)
	c, err := client.NewClient(&client.ClientOptions{BaseURL: serverAddress, Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("error creating API client: %w", err)
	}
	clientInstance = c
	return c, nil
}

// loadConfigFromFlags layers explicitly set flags over env vars, the config file and defaults
func loadConfigFromFlags(cmd *cobra.Command) (*config.Config, error) {
	v := config.New()
	for _, key := range configFlags {
		if f := cmd.Flags().Lookup(key); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}
	return config.LoadFrom(v)
}

// localApp loads configuration and wires the workflow in process
func localApp(cmd *cobra.Command) (*app.App, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	return a, cfg, nil
}

// printJSON writes v indented to the command output
func printJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error formatting output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
