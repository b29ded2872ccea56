package scheduler

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/duskline/noteflap/pkg/noteflap/display"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeDisplay struct{}

func (fakeDisplay) Set(templates []display.Template, variables display.Variables, truncation string) error {
	return nil
}
func (fakeDisplay) Get() (display.Variables, error) { return nil, nil }

func TestNewAssemblesWithoutPanicking(t *testing.T) {
	t.Parallel()

	s := New(Config{
		Display:        fakeDisplay{},
		Integrations:   nil,
		MinHold:        time.Second,
		UserContentDir: t.TempDir(),
		Logger:         discardLogger(),
	})
	if s.Queue() == nil || s.State() == nil || s.Integrations() == nil || s.Registrar() == nil {
		t.Fatal("expected every component to be assembled")
	}
}

func TestLoadContentTreatsMissingDirectoryAsNoOp(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := New(Config{
		Display:        fakeDisplay{},
		UserContentDir: filepath.Join(dir, "does-not-exist"),
		Logger:         discardLogger(),
	})
	if err := s.LoadContent(); err != nil {
		t.Fatalf("expected a missing content directory to be a no-op, got: %v", err)
	}
}

func TestStartAndStopLifecycle(t *testing.T) {
	t.Parallel()

	s := New(Config{
		Display:        fakeDisplay{},
		UserContentDir: t.TempDir(),
		WebhookBind:    "127.0.0.1",
		WebhookPort:    0,
		WebhookSecret:  "test-secret",
		Logger:         discardLogger(),
	})
	if err := s.LoadContent(); err != nil {
		t.Fatalf("LoadContent: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
}
