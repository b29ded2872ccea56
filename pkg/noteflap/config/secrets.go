package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"

	"github.com/zalando/go-keyring"
)

// keyringService namespaces this daemon's secrets in the OS keyring.
const keyringService = "noteflap"

// resolveSecret resolves one secret through the chain: OS keyring → process
// environment (env var envKey, which also covers .env/.env.local since
// loadEnvFiles already populated the process environment by the time this
// runs) → the value already decoded from config.toml. The first non-empty
// result wins.
func resolveSecret(envKey, keyringKey, configValue string, log *slog.Logger) string {
	if val, err := keyring.Get(keyringService, keyringKey); err == nil && val != "" {
		log.Debug("secret resolved from OS keyring", "key", keyringKey)
		return val
	}
	if val := os.Getenv(envKey); val != "" {
		log.Debug("secret resolved from environment", "key", envKey)
		return val
	}
	if configValue != "" {
		log.Debug("secret resolved from config file", "key", keyringKey)
		return configValue
	}
	return ""
}

// GenerateSecret returns 32 bytes of crypto/rand entropy, base64url-encoded,
// suitable for a webhook shared secret.
func GenerateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// EnsureWebhookSecret returns cfg's webhook secret, generating and
// persisting one to path if none is configured — the Go equivalent of
// original_source/scheduler.py:_start_webhook_server's auto-generate step.
func EnsureWebhookSecret(cfg *Config, path string, log *slog.Logger) (string, error) {
	if cfg.Webhook.Secret != "" {
		return cfg.Webhook.Secret, nil
	}

	secret, err := GenerateSecret()
	if err != nil {
		return "", err
	}
	if err := WriteSectionValue(path, "webhook", "secret", secret); err != nil {
		return "", fmt.Errorf("persisting generated webhook secret: %w", err)
	}
	cfg.Webhook.Secret = secret
	log.Info("webhook secret generated and saved to config.toml",
		"path", path,
		"hint", "copy this into your webhook sender",
	)
	return secret, nil
}

// StoreInKeyring saves key/value to the OS keyring, for operators who prefer
// it over config.toml or an environment variable.
func StoreInKeyring(key, value string) error {
	return keyring.Set(keyringService, key, value)
}
