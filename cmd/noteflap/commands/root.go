// Package commands implements noteflap's CLI commands using cobra.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/duskline/noteflap/pkg/noteflap/config"
)

// NewRootCmd builds the root CLI command with every subcommand registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "noteflap",
		Short: "Prioritised, coalescing scheduler for a split-flap display",
		Long: `noteflap drives a physical split-flap display from cron-scheduled
content and webhook events, pre-empting low-priority content for
higher-priority updates while a single worker owns the board.

Examples:
  noteflap serve
  noteflap validate
  noteflap webhook-secret`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newValidateCmd(),
		newWebhookSecretCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", config.Path, "path to config.toml")

	return rootCmd
}
