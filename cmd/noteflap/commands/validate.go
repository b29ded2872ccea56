package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/duskline/noteflap/pkg/noteflap/config"
	"github.com/duskline/noteflap/pkg/noteflap/content"
	"github.com/duskline/noteflap/pkg/noteflap/message"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate config.toml and content descriptors without starting the daemon",
		Long: `Loads config.toml and every content descriptor file under
content/user and the enabled stems of content/contrib, reporting the first
error found. Exits 0
if everything is well-formed, 1 otherwise. Nothing is started: no cron jobs
fire, no webhook server binds.`,
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	log := slog.Default()

	cfg, err := loadAppConfig(configPath, log)
	var fatal *config.FatalStartupError
	if errors.As(err, &fatal) {
		return fmt.Errorf("%s", fatal.Message)
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cmd.Printf("config: %s (model=%s, public_mode=%v)\n", configPath, cfg.Scheduler.Model, cfg.Scheduler.PublicMode)

	registrar := content.New(cron.New(), message.NewQueue(), scheduleOverrideFromConfig(cfg), log)
	if err := registrar.LoadAll(userContentDir, contribContentDir, cfg.Scheduler.PublicMode, contribEnabledSet(cfg.Scheduler.ContentEnabled)); err != nil {
		return fmt.Errorf("content validation failed: %w", err)
	}

	cmd.Println("content descriptors: OK")
	cmd.Println("configuration is valid")
	return nil
}
