package content

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/duskline/noteflap/pkg/noteflap/message"
)

// ScheduleOverride carries per-template overrides sourced from
// config.toml's [<file_stem>.schedules.<template_name>] tables. Nil fields
// mean "no override for this field, keep the content file's value".
type ScheduleOverride struct {
	Cron            *string
	Hold            *int
	Timeout         *int
	Priority        *int
	RefreshInterval *int
}

// OverrideLookup resolves the config-sourced overrides for one template,
// keyed the same way original_source/config.py:get_schedule_override is:
// "<file_stem>.<template_name>".
type OverrideLookup func(fileStem, templateName string) ScheduleOverride

// Registrar loads content descriptor files and registers their cron-driven
// templates with an underlying cron scheduler, enqueueing a message on each
// fire. It is the namespacing authority: job IDs are
// "<parent_dir>.<file_stem>.<template_name>", and loading a file again
// atomically swaps out every job previously registered from that file.
type Registrar struct {
	cron     *cron.Cron
	queue    *message.Queue
	override OverrideLookup
	log      *slog.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID // job ID -> cron entry
	webhook map[string]Template     // job ID -> webhook-only template, for diagnostics
}

// New returns a Registrar driving queue's Enqueue from cron-triggered
// templates.
func New(c *cron.Cron, queue *message.Queue, override OverrideLookup, log *slog.Logger) *Registrar {
	if override == nil {
		override = func(string, string) ScheduleOverride { return ScheduleOverride{} }
	}
	if log == nil {
		log = slog.Default()
	}
	return &Registrar{
		cron:     c,
		queue:    queue,
		override: override,
		log:      log.With("component", "content"),
		entries:  make(map[string]cron.EntryID),
		webhook:  make(map[string]Template),
	}
}

// LoadAll loads every *.json file from userRoot (always) and, when
// contribEnabled is non-empty, from contribRoot — either every stem named in
// contribEnabled or every file when contribEnabled contains "*".
func (r *Registrar) LoadAll(userRoot, contribRoot string, publicMode bool, contribEnabled map[string]bool) error {
	if err := r.loadDir(userRoot, publicMode, nil); err != nil {
		return err
	}
	if len(contribEnabled) > 0 {
		allow := func(stem string) bool {
			return contribEnabled["*"] || contribEnabled[stem]
		}
		if err := r.loadDir(contribRoot, publicMode, allow); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registrar) loadDir(root string, publicMode bool, allow func(stem string) bool) error {
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading content directory %s: %w", root, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		stem := strings.TrimSuffix(name, ".json")
		if allow != nil && !allow(stem) {
			continue
		}
		path := filepath.Join(root, name)
		if err := r.LoadFile(path, publicMode); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile loads, validates, and registers one content file. A bad file
// leaves previously registered jobs untouched.
func (r *Registrar) LoadFile(path string, publicMode bool) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading content file %s: %w", path, err)
	}
	f, err := ParseFile(raw)
	if err != nil {
		return fmt.Errorf("parsing content file %s: %w", path, err)
	}
	if err := ValidateFile(path, f, publicMode); err != nil {
		return err
	}

	stem := fmt.Sprintf("%s.%s", filepath.Base(filepath.Dir(path)), strings.TrimSuffix(filepath.Base(path), ".json"))
	fileStem := strings.TrimSuffix(filepath.Base(path), ".json")

	type planned struct {
		jobID        string
		templateName string
		priority     int
		schedule     Schedule
		data         message.Data
		webhookOnly  bool
		template     Template
	}

	var plan []planned
	for templateName, t := range f.Templates {
		if publicMode && !t.IsPublic() {
			continue
		}
		jobID := stem + "." + templateName

		data := message.Data{
			Templates:     t.Templates,
			Variables:     f.Variables,
			Truncation:    t.Truncation,
			Integration:   t.Integration,
			IntegrationFn: t.IntegrationFn,
		}

		schedule := r.applyOverride(fileStem, templateName, t.Schedule)
		priority := t.Priority
		if ov := r.override(fileStem, templateName); ov.Priority != nil {
			if *ov.Priority >= 0 && *ov.Priority <= 10 {
				priority = *ov.Priority
			} else {
				r.log.Warn("ignoring invalid priority override", "job_id", jobID, "value", *ov.Priority)
			}
		}
		if schedule.RefreshInterval != nil {
			data.RefreshInterval = seconds(*schedule.RefreshInterval)
		}

		webhookOnly := t.Webhook && !t.HasCron() && schedule.Cron == ""
		plan = append(plan, planned{
			jobID:        jobID,
			templateName: templateName,
			priority:     priority,
			schedule:     schedule,
			data:         data,
			webhookOnly:  webhookOnly,
			template:     t,
		})
	}

	// Swap out every job previously registered from this file before adding
	// the new set, so a file reload never leaves stale jobs behind.
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeByPrefixLocked(stem + ".")

	for _, p := range plan {
		if p.webhookOnly {
			r.webhook[p.jobID] = p.template
			continue
		}
		entryID, err := r.cron.AddFunc(p.schedule.Cron, r.fireFunc(p.jobID, p.priority, p.schedule, p.data))
		if err != nil {
			return fmt.Errorf("registering %s: invalid cron expression %q: %w", p.jobID, p.schedule.Cron, err)
		}
		r.entries[p.jobID] = entryID
	}

	r.log.Info("loaded content file", "file", path, "templates", len(plan))
	return nil
}

// applyOverride merges config-sourced overrides into base, ignoring invalid
// values and logging a warning for each one dropped.
func (r *Registrar) applyOverride(fileStem, templateName string, base Schedule) Schedule {
	ov := r.override(fileStem, templateName)
	effective := base

	if ov.Cron != nil && strings.TrimSpace(*ov.Cron) != "" {
		effective.Cron = *ov.Cron
	}
	if ov.Hold != nil {
		if *ov.Hold >= 0 {
			effective.Hold = *ov.Hold
		} else {
			r.log.Warn("ignoring invalid hold override", "file_stem", fileStem, "template", templateName, "value", *ov.Hold)
		}
	}
	if ov.Timeout != nil {
		if *ov.Timeout >= 0 {
			effective.Timeout = *ov.Timeout
		} else {
			r.log.Warn("ignoring invalid timeout override", "file_stem", fileStem, "template", templateName, "value", *ov.Timeout)
		}
	}
	if ov.RefreshInterval != nil {
		if *ov.RefreshInterval >= MinRefreshInterval {
			effective.RefreshInterval = ov.RefreshInterval
		} else {
			r.log.Warn("ignoring invalid refresh_interval override", "file_stem", fileStem, "template", templateName, "value", *ov.RefreshInterval)
		}
	}
	return effective
}

// fireFunc returns the closure registered with cron for one template: it
// enqueues a fresh message with a new ScheduledAt every time the schedule
// fires.
func (r *Registrar) fireFunc(jobID string, priority int, schedule Schedule, data message.Data) func() {
	return func() {
		r.queue.Enqueue(&message.Message{
			Priority:    priority,
			Name:        jobID,
			ScheduledAt: time.Now(),
			Data:        data,
			Hold:        seconds(schedule.Hold),
			Timeout:     seconds(schedule.Timeout),
		})
	}
}

// removeByPrefixLocked removes every cron entry whose job ID has the given
// prefix. Caller must hold r.mu.
func (r *Registrar) removeByPrefixLocked(prefix string) {
	for jobID, entryID := range r.entries {
		if strings.HasPrefix(jobID, prefix) {
			r.cron.Remove(entryID)
			delete(r.entries, jobID)
		}
	}
	for jobID := range r.webhook {
		if strings.HasPrefix(jobID, prefix) {
			delete(r.webhook, jobID)
		}
	}
}

// WebhookDefaults returns the webhook-only template registered under jobID,
// if any, so callers can inspect webhook-triggered templates that have no
// cron entry.
func (r *Registrar) WebhookDefaults(jobID string) (Template, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.webhook[jobID]
	return t, ok
}
