package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteSectionValueUpdatesExistingKey(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "[myapp]\naccess_token = \"old\"\n")

	if err := WriteSectionValue(path, "myapp", "access_token", "new"); err != nil {
		t.Fatalf("WriteSectionValue: %v", err)
	}
	text := readFile(t, path)
	if !strings.Contains(text, `access_token = "new"`) {
		t.Fatalf("expected updated value, got: %s", text)
	}
	if strings.Contains(text, "old") {
		t.Fatalf("expected old value to be gone, got: %s", text)
	}
}

func TestWriteSectionValueReplacesCommentedKey(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "[myapp]\n# access_token = \"placeholder\"\n")

	if err := WriteSectionValue(path, "myapp", "access_token", "tok123"); err != nil {
		t.Fatalf("WriteSectionValue: %v", err)
	}
	text := readFile(t, path)
	if !strings.Contains(text, `access_token = "tok123"`) {
		t.Fatalf("expected new value, got: %s", text)
	}
	if strings.Contains(text, "# access_token") {
		t.Fatalf("expected commented line to be replaced, got: %s", text)
	}
}

func TestWriteSectionValueAppendsNewKey(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "[myapp]\nexisting = \"val\"\n")

	if err := WriteSectionValue(path, "myapp", "new_key", "added"); err != nil {
		t.Fatalf("WriteSectionValue: %v", err)
	}
	text := readFile(t, path)
	if !strings.Contains(text, `new_key = "added"`) {
		t.Fatalf("expected new key appended, got: %s", text)
	}
	if !strings.Contains(text, `existing = "val"`) {
		t.Fatalf("expected existing key preserved, got: %s", text)
	}
}

func TestWriteSectionValuePreservesOtherSections(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "[other]\nfoo = \"bar\"\n\n[myapp]\nkey = \"old\"\n")

	if err := WriteSectionValue(path, "myapp", "key", "new"); err != nil {
		t.Fatalf("WriteSectionValue: %v", err)
	}
	text := readFile(t, path)
	if !strings.Contains(text, `foo = "bar"`) || !strings.Contains(text, `key = "new"`) {
		t.Fatalf("expected both sections intact, got: %s", text)
	}
}

func TestWriteSectionValueMissingSectionErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "[other]\nfoo = \"bar\"\n")

	if err := WriteSectionValue(path, "missing", "key", "val"); err == nil {
		t.Fatal("expected an error for a missing section")
	}
}

func TestWriteSectionValueMissingFileErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := WriteSectionValue(path, "myapp", "key", "val"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(b)
}
