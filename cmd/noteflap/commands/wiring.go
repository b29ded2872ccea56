package commands

import (
	"log/slog"
	"time"

	"github.com/duskline/noteflap/pkg/noteflap/config"
	"github.com/duskline/noteflap/pkg/noteflap/content"
	"github.com/duskline/noteflap/pkg/noteflap/display"
	"github.com/duskline/noteflap/pkg/noteflap/integration"
	"github.com/duskline/noteflap/pkg/noteflap/scheduler"
)

// userContentDir and contribContentDir are the two content roots
// original_source/scheduler.py reads from, matching its container layout.
const (
	userContentDir    = "content/user"
	contribContentDir = "content/contrib"
)

// loadAppConfig reads and validates config.toml, returning a FatalStartupError
// (caller exits 1) or a plain error (config present but malformed).
func loadAppConfig(path string, log *slog.Logger) (*config.Config, error) {
	if warning, err := config.ValidateStartup(path, userContentDir); err != nil {
		return nil, err
	} else if warning != "" {
		log.Warn(warning)
	}
	return config.Load(path, log)
}

// scheduleOverrideFromConfig adapts config.Config's raw TOML-table view of
// per-template overrides into content.OverrideLookup, the one seam where
// the config package's map[string]any shape meets the core's typed view.
func scheduleOverrideFromConfig(cfg *config.Config) content.OverrideLookup {
	return func(fileStem, templateName string) content.ScheduleOverride {
		raw := cfg.ScheduleOverride(fileStem, templateName)
		if raw == nil {
			return content.ScheduleOverride{}
		}
		var o content.ScheduleOverride
		if v, ok := raw["cron"].(string); ok {
			o.Cron = &v
		}
		if v, ok := toInt(raw["hold"]); ok {
			o.Hold = &v
		}
		if v, ok := toInt(raw["timeout"]); ok {
			o.Timeout = &v
		}
		if v, ok := toInt(raw["priority"]); ok {
			o.Priority = &v
		}
		if v, ok := toInt(raw["refresh_interval"]); ok {
			o.RefreshInterval = &v
		}
		return o
	}
}

// toInt converts a decoded TOML integer (always int64 from BurntSushi/toml)
// to int.
func toInt(v any) (int, bool) {
	n, ok := v.(int64)
	if !ok {
		return 0, false
	}
	return int(n), true
}

// contribEnabledSet turns config.toml's content_enabled list into the
// set content.Registrar.LoadAll expects.
func contribEnabledSet(stems []string) map[string]bool {
	set := make(map[string]bool, len(stems))
	for _, s := range stems {
		set[s] = true
	}
	return set
}

// minHoldDuration converts config.toml's min_hold (seconds) to a Duration.
func minHoldDuration(seconds int) time.Duration {
	if seconds <= 0 {
		seconds = 60
	}
	return time.Duration(seconds) * time.Second
}

// knownIntegrations is the allowlist wired into the registry. spec.md keeps
// concrete integrations out of core scope ("pluggable ... no integration is
// specified"); noteflap ships none built in, so the allowlist starts empty.
// A deployment that needs one implements integration.VariablesProvider /
// WebhookHandler / Preflight and adds a Factory entry here.
func knownIntegrations() map[string]integration.Factory {
	return map[string]integration.Factory{}
}

// buildScheduler assembles a scheduler.Scheduler from a loaded config. It
// does not load content or start anything.
func buildScheduler(cfg *config.Config, integrations map[string]integration.Factory, log *slog.Logger) *scheduler.Scheduler {
	return scheduler.New(scheduler.Config{
		Display:           display.NewHTTPClient(cfg.Scheduler.DisplayBaseURL, cfg.Scheduler.DisplayAPIKey),
		Integrations:      integrations,
		MinHold:           minHoldDuration(cfg.Scheduler.MinHold),
		UserContentDir:    userContentDir,
		ContribContentDir: contribContentDir,
		PublicMode:        cfg.Scheduler.PublicMode,
		ContribEnabled:    contribEnabledSet(cfg.Scheduler.ContentEnabled),
		ScheduleOverride:  scheduleOverrideFromConfig(cfg),
		WebhookBind:       cfg.Webhook.Bind,
		WebhookPort:       cfg.Webhook.Port,
		WebhookSecret:     cfg.Webhook.Secret,
		Logger:            log,
	})
}
