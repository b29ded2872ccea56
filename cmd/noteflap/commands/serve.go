package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/duskline/noteflap/pkg/noteflap/config"
)

// shutdownTimeout bounds how long `serve` waits for a clean shutdown before
// forcing exit, matching cmd/devclaw/commands/serve.go's 10s ceiling.
const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler daemon",
		Long: `Loads config.toml, registers content, and runs the scheduler until
SIGINT or SIGTERM. This is noteflap's primary, long-running mode.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
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

	secret, err := config.EnsureWebhookSecret(cfg, configPath, log)
	if err != nil {
		return fmt.Errorf("ensuring webhook secret: %w", err)
	}
	cfg.Webhook.Secret = secret

	sched := buildScheduler(cfg, knownIntegrations(), log)
	if err := sched.LoadContent(); err != nil {
		return fmt.Errorf("loading content: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	log.Info("noteflap running, press Ctrl+C to stop",
		"model", cfg.Scheduler.Model,
		"public_mode", cfg.Scheduler.PublicMode,
		"contrib_content_enabled", cfg.Scheduler.ContentEnabled,
		"webhook_bind", cfg.Webhook.Bind,
		"webhook_port", cfg.Webhook.Port,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutdown signal received, stopping")

	done := make(chan struct{})
	go func() {
		sched.Stop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("shutdown complete")
	case <-time.After(shutdownTimeout):
		log.Warn("shutdown timed out, forcing exit")
	}

	return nil
}
