package content

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/duskline/noteflap/pkg/noteflap/message"
)

func writeContentFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

const sampleContent = `{
  "variables": {"greeting": [["hello"]]},
  "templates": {
    "daily": {
      "priority": 5,
      "schedule": {"cron": "0 9 * * *", "hold": 30, "timeout": 300},
      "templates": [{"format": ["{greeting}"]}]
    },
    "on_demand": {
      "priority": 7,
      "webhook": true,
      "schedule": {"cron": "", "hold": 10, "timeout": 60},
      "templates": [{"format": ["{greeting}"]}]
    }
  }
}`

func TestRegistrarLoadFileRegistersCronJobAndWebhookOnly(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	userDir := filepath.Join(dir, "user")
	if err := os.Mkdir(userDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := writeContentFile(t, userDir, "greetings.json", sampleContent)

	c := cron.New()
	q := message.NewQueue()
	reg := New(c, q, nil, nil)

	if err := reg.LoadFile(path, false); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if len(reg.entries) != 1 {
		t.Fatalf("expected exactly one cron-registered job, got %d", len(reg.entries))
	}
	if _, ok := reg.entries["user.greetings.daily"]; !ok {
		t.Fatalf("expected job ID user.greetings.daily, got %v", reg.entries)
	}
	if _, ok := reg.WebhookDefaults("user.greetings.on_demand"); !ok {
		t.Fatal("expected on_demand to be tracked as a webhook-only template")
	}
}

func TestRegistrarReloadSwapsOutStaleJobs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	userDir := filepath.Join(dir, "user")
	if err := os.Mkdir(userDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := writeContentFile(t, userDir, "greetings.json", sampleContent)

	c := cron.New()
	q := message.NewQueue()
	reg := New(c, q, nil, nil)

	if err := reg.LoadFile(path, false); err != nil {
		t.Fatalf("first LoadFile: %v", err)
	}
	firstEntry := reg.entries["user.greetings.daily"]

	// Reload the same file; the job should be removed and re-added, not
	// duplicated, and the underlying cron entry should change.
	if err := reg.LoadFile(path, false); err != nil {
		t.Fatalf("second LoadFile: %v", err)
	}
	if len(reg.entries) != 1 {
		t.Fatalf("expected reload to leave exactly one job, got %d", len(reg.entries))
	}
	if reg.entries["user.greetings.daily"] == firstEntry {
		t.Fatal("expected reload to register a fresh cron entry, not reuse the old one")
	}
}

func TestRegistrarRejectsInvalidFileWithoutTouchingExistingJobs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	userDir := filepath.Join(dir, "user")
	if err := os.Mkdir(userDir, 0o755); err != nil {
		t.Fatal(err)
	}
	goodPath := writeContentFile(t, userDir, "good.json", sampleContent)
	badPath := writeContentFile(t, userDir, "bad.json", `{"templates": {"broken": {"priority": 99}}}`)

	c := cron.New()
	q := message.NewQueue()
	reg := New(c, q, nil, nil)

	if err := reg.LoadFile(goodPath, false); err != nil {
		t.Fatalf("LoadFile(good): %v", err)
	}
	before := len(reg.entries)

	if err := reg.LoadFile(badPath, false); err == nil {
		t.Fatal("expected invalid priority to fail validation")
	}
	if len(reg.entries) != before {
		t.Fatalf("expected existing jobs untouched after a failed load, before=%d after=%d", before, len(reg.entries))
	}
}

func TestRegistrarAppliesScheduleOverride(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	userDir := filepath.Join(dir, "user")
	if err := os.Mkdir(userDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := writeContentFile(t, userDir, "greetings.json", sampleContent)

	c := cron.New()
	q := message.NewQueue()
	overrideHold := 999
	override := func(fileStem, templateName string) ScheduleOverride {
		if fileStem == "greetings" && templateName == "daily" {
			return ScheduleOverride{Hold: &overrideHold}
		}
		return ScheduleOverride{}
	}
	reg := New(c, q, override, nil)

	if err := reg.LoadFile(path, false); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(reg.entries) != 1 {
		t.Fatalf("expected one job, got %d", len(reg.entries))
	}

	c.Entry(reg.entries["user.greetings.daily"]).Job.Run()
	snap := q.Snapshot()
	if len(snap) != 1 || snap[0].Hold != time.Duration(overrideHold)*time.Second {
		t.Fatalf("expected the fired message to carry the overridden hold of %ds, got %+v", overrideHold, snap)
	}
}
