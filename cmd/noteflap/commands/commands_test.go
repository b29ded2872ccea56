package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing fixture config: %v", err)
	}
	return path
}

func runRootWith(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd("test")
	var out strings.Builder
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestValidateCommandAcceptsMinimalConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "[scheduler]\nmodel = \"note\"\n\n[webhook]\nport = 8080\nsecret = \"s3cret\"\n")
	_, err := runRootWith(t, "--config", path, "validate")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateCommandReportsFatalOnMissingConfig(t *testing.T) {
	t.Parallel()

	_, err := runRootWith(t, "--config", filepath.Join(t.TempDir(), "missing.toml"), "validate")
	if err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestWebhookSecretPrintsAndPersistsGeneratedSecret(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "[scheduler]\nmodel = \"note\"\n\n[webhook]\nport = 8080\n")
	out, err := runRootWith(t, "--config", path, "webhook-secret")
	if err != nil {
		t.Fatalf("webhook-secret: %v", err)
	}
	secret := strings.TrimSpace(out)
	if secret == "" {
		t.Fatal("expected a non-empty secret printed")
	}

	persisted, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading config: %v", err)
	}
	if !strings.Contains(string(persisted), secret) {
		t.Fatalf("expected the generated secret persisted to config.toml, got: %s", persisted)
	}
}

func TestWebhookSecretRotateReplacesExisting(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "[scheduler]\nmodel = \"note\"\n\n[webhook]\nport = 8080\nsecret = \"original-secret\"\n")
	out, err := runRootWith(t, "--config", path, "webhook-secret", "--rotate")
	if err != nil {
		t.Fatalf("webhook-secret --rotate: %v", err)
	}
	rotated := strings.TrimSpace(out)
	if rotated == "" || rotated == "original-secret" {
		t.Fatalf("expected a freshly rotated secret, got %q", rotated)
	}
}
