package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/duskline/noteflap/pkg/noteflap/config"
)

func newWebhookSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook-secret",
		Short: "Print or rotate the webhook shared secret",
		Long: `Prints the effective webhook secret, resolved through the same
OS keyring -> environment -> config.toml chain serve uses, generating and
persisting one to config.toml if none is configured yet.

Use --rotate to generate a fresh secret and overwrite the one on disk.`,
		RunE: runWebhookSecret,
	}
	cmd.Flags().Bool("rotate", false, "generate a new secret and persist it to config.toml")
	return cmd
}

func runWebhookSecret(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	rotate, _ := cmd.Flags().GetBool("rotate")
	log := slog.Default()

	cfg, err := loadAppConfig(configPath, log)
	var fatal *config.FatalStartupError
	if errors.As(err, &fatal) {
		return fmt.Errorf("%s", fatal.Message)
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if rotate {
		secret, err := config.GenerateSecret()
		if err != nil {
			return fmt.Errorf("generating secret: %w", err)
		}
		if err := config.WriteSectionValue(configPath, "webhook", "secret", secret); err != nil {
			return fmt.Errorf("persisting rotated secret: %w", err)
		}
		cmd.Println(secret)
		return nil
	}

	secret, err := config.EnsureWebhookSecret(cfg, configPath, log)
	if err != nil {
		return fmt.Errorf("resolving webhook secret: %w", err)
	}
	cmd.Println(secret)
	return nil
}
