package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// envVarPattern matches ${VAR}, ${VAR:-default}, ${VAR:?error}, and bare
// $VAR references in a config file, expanded before TOML parsing.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::(-|\?)([^}]*))?\}|\$([A-Z_][A-Z0-9_]*)`)

// Load reads, expands, and decodes config.toml at path, then resolves the
// webhook secret and display API key through the OS keyring / env / .env /
// config chain.
func Load(path string, log *slog.Logger) (*Config, error) {
	if log == nil {
		log = slog.Default()
	}

	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded, err := expandEnvVarsWithValidation(string(data))
	if err != nil {
		return nil, fmt.Errorf("expanding environment variables: %w", err)
	}

	var raw map[string]map[string]any
	if _, err := toml.Decode(expanded, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{raw: raw}
	cfg.Scheduler = parseScheduler(raw["scheduler"])
	cfg.Webhook = parseWebhook(raw["webhook"])

	cfg.Webhook.Secret = resolveSecret("NOTEFLAP_WEBHOOK_SECRET", "webhook_secret", cfg.Webhook.Secret, log)
	cfg.Scheduler.DisplayAPIKey = resolveSecret("NOTEFLAP_DISPLAY_API_KEY", "display_api_key", cfg.Scheduler.DisplayAPIKey, log)

	checkFilePermissions(path, log)

	return cfg, nil
}

func parseScheduler(section map[string]any) Scheduler {
	s := Scheduler{Model: "note", MinHold: 60}
	if section == nil {
		return s
	}
	if v, ok := section["model"].(string); ok && v != "" {
		s.Model = v
	}
	if v, ok := section["public_mode"].(bool); ok {
		s.PublicMode = v
	}
	if v, ok := section["min_hold"].(int64); ok {
		s.MinHold = int(v)
	}
	if v, ok := section["display_base_url"].(string); ok {
		s.DisplayBaseURL = v
	}
	if v, ok := section["display_api_key"].(string); ok {
		s.DisplayAPIKey = v
	}
	if raw, ok := section["content_enabled"].([]any); ok {
		for _, item := range raw {
			if str, ok := item.(string); ok {
				s.ContentEnabled = append(s.ContentEnabled, str)
			}
		}
	}
	return s
}

func parseWebhook(section map[string]any) Webhook {
	w := Webhook{Port: 8080, Bind: "127.0.0.1"}
	if section == nil {
		return w
	}
	if v, ok := section["port"].(int64); ok {
		w.Port = int(v)
	}
	if v, ok := section["bind"].(string); ok && v != "" {
		w.Bind = v
	}
	if v, ok := section["secret"].(string); ok {
		w.Secret = v
	}
	return w
}

// ScheduleOverride returns the [<fileStem>.schedules.<templateName>] table
// for a content template, or nil if none is configured, matching
// original_source/config.py:get_schedule_override.
func (c *Config) ScheduleOverride(fileStem, templateName string) map[string]any {
	section, ok := c.raw[fileStem]
	if !ok {
		return nil
	}
	schedules, ok := section["schedules"].(map[string]any)
	if !ok {
		return nil
	}
	override, ok := schedules[templateName].(map[string]any)
	if !ok {
		return nil
	}
	return override
}

// loadEnvFiles loads .env then .env.local without overwriting variables
// already present in the process environment.
func loadEnvFiles() {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}
}

// expandEnvVars replaces ${VAR}, ${VAR:-default}, ${VAR:?error}, and $VAR
// references with their environment variable values, leaving unresolved
// placeholders (no modifier, unset variable) untouched.
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		varName, modifier, modifierValue, bareVar := groups[1], groups[2], groups[3], groups[4]

		if bareVar != "" {
			if val, ok := os.LookupEnv(bareVar); ok {
				return val
			}
			return match
		}

		if varName == "" {
			return match
		}
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		switch modifier {
		case "?":
			errMsg := modifierValue
			if errMsg == "" {
				errMsg = "required environment variable not set"
			}
			return "ERROR:" + varName + ":" + errMsg
		case "-":
			return modifierValue
		default:
			return match
		}
	})
}

// expandEnvVarsWithValidation is expandEnvVars but turns an unresolved
// ${VAR:?error} marker into a real error.
func expandEnvVarsWithValidation(input string) (string, error) {
	result := expandEnvVars(input)
	idx := strings.Index(result, "ERROR:")
	if idx == -1 {
		return result, nil
	}
	rest := result[idx+len("ERROR:"):]
	colon := strings.Index(rest, ":")
	if colon == -1 {
		return "", fmt.Errorf("config error: malformed error marker")
	}
	varName, errMsg := rest[:colon], rest[colon+1:]
	if errMsg == "" {
		errMsg = "required environment variable not set"
	}
	return "", fmt.Errorf("config error: %s - %s", varName, errMsg)
}

// checkFilePermissions warns if config.toml is group- or world-readable,
// since it may hold a generated webhook secret.
func checkFilePermissions(path string, log *slog.Logger) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	mode := info.Mode().Perm()
	if mode&0o044 != 0 {
		log.Warn("config file has open permissions, consider restricting",
			"path", path,
			"current", fmt.Sprintf("%04o", mode),
			"recommended", "0600",
		)
	}
}
