// Package content loads JSON content descriptors and registers their
// templates as cron-triggered (or webhook-only) jobs that enqueue display
// messages.
package content

import "encoding/json"

// File is one content descriptor: a set of named templates sharing a
// Variables map.
type File struct {
	Variables map[string][][]string `json:"variables"`
	Templates map[string]Template   `json:"templates"`
}

// Schedule holds a template's timing fields, either from the content file
// itself or after a config override has been applied.
type Schedule struct {
	Cron            string `json:"cron"`
	Hold            int    `json:"hold"`
	Timeout         int    `json:"timeout"`
	RefreshInterval *int   `json:"refresh_interval,omitempty"`
}

// Template is one named, schedulable unit of display content.
type Template struct {
	Schedule      Schedule         `json:"schedule"`
	Priority      int              `json:"priority"`
	Truncation    string           `json:"truncation,omitempty"`
	Templates     []map[string]any `json:"templates,omitempty"`
	Integration   string           `json:"integration,omitempty"`
	IntegrationFn string           `json:"integration_fn,omitempty"`
	Webhook       bool             `json:"webhook,omitempty"`
	SupersedeTag  string           `json:"supersede_tag,omitempty"`

	// Public defaults to true; an explicit false hides the template when the
	// daemon runs in public mode.
	Public *bool `json:"public,omitempty"`
}

// IsPublic reports whether t should be loaded in public mode.
func (t Template) IsPublic() bool {
	return t.Public == nil || *t.Public
}

// HasCron reports whether t has a non-empty cron schedule.
func (t Template) HasCron() bool {
	return t.Schedule.Cron != ""
}

// ParseFile decodes raw JSON bytes into a File.
func ParseFile(data []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
