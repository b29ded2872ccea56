package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateSecretIsUniqueAndURLSafe(t *testing.T) {
	t.Parallel()

	a, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	b, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	if a == b {
		t.Fatal("expected two distinct generated secrets")
	}
	if strings.ContainsAny(a, "+/=") {
		t.Fatalf("expected a URL-safe secret, got %q", a)
	}
}

func TestEnsureWebhookSecretReturnsExistingSecret(t *testing.T) {
	t.Parallel()

	cfg := &Config{Webhook: Webhook{Secret: "already-set"}}
	secret, err := EnsureWebhookSecret(cfg, "/nonexistent/path.toml", discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secret != "already-set" {
		t.Fatalf("expected existing secret preserved, got %q", secret)
	}
}

func TestEnsureWebhookSecretGeneratesAndPersists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "[webhook]\nport = 8080\n")

	cfg := &Config{Webhook: Webhook{Port: 8080}}
	secret, err := EnsureWebhookSecret(cfg, path, discardLogger())
	if err != nil {
		t.Fatalf("EnsureWebhookSecret: %v", err)
	}
	if secret == "" {
		t.Fatal("expected a generated secret")
	}
	if cfg.Webhook.Secret != secret {
		t.Fatalf("expected cfg to be updated in place, got %q", cfg.Webhook.Secret)
	}
	text := readFile(t, path)
	if !strings.Contains(text, secret) {
		t.Fatalf("expected the generated secret persisted to config.toml, got: %s", text)
	}
}
