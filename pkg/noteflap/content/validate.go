package content

import (
	"fmt"
	"strings"
	"time"
)

// MinRefreshInterval is the smallest refresh_interval a template may
// request, preventing an integration from being hammered.
const MinRefreshInterval = 30

var validTruncations = map[string]bool{"hard": true, "word": true, "ellipsis": true}

// ValidationError reports every problem found in one content file, so a
// caller can log one line per failure and reject the whole file atomically.
type ValidationError struct {
	File   string
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, strings.Join(e.Issues, "; "))
}

// ValidateTemplate checks a single template, appending any problems found to
// issues (prefixed with name) rather than stopping at the first one, so a
// caller sees every mistake in one pass.
func ValidateTemplate(name string, t Template, issues *[]string) {
	fail := func(format string, args ...any) {
		*issues = append(*issues, fmt.Sprintf(name+": "+format, args...))
	}

	if !t.Webhook && strings.TrimSpace(t.Schedule.Cron) == "" {
		fail("schedule.cron must be a non-empty string")
	}
	if t.Schedule.Hold < 0 {
		fail("schedule.hold must be a non-negative integer, got %d", t.Schedule.Hold)
	}
	if t.Schedule.Timeout < 0 {
		fail("schedule.timeout must be a non-negative integer, got %d", t.Schedule.Timeout)
	}
	if t.Priority < 0 || t.Priority > 10 {
		fail("priority must be an integer between 0 and 10, got %d", t.Priority)
	}

	truncation := t.Truncation
	if truncation == "" {
		truncation = "hard"
	}
	if !validTruncations[truncation] {
		fail("truncation must be one of ellipsis, hard, word, got %q", truncation)
	}

	if t.Schedule.RefreshInterval != nil && *t.Schedule.RefreshInterval < MinRefreshInterval {
		fail("schedule.refresh_interval must be an integer >= %d, got %d", MinRefreshInterval, *t.Schedule.RefreshInterval)
	}

	if len(t.Templates) == 0 && t.Integration == "" {
		fail(`must have "templates" and/or "integration"`)
	}
}

// ValidateFile validates every template in f, returning a *ValidationError
// naming file if any template fails.
func ValidateFile(file string, f *File, publicMode bool) error {
	var issues []string
	for name, t := range f.Templates {
		if publicMode && !t.IsPublic() {
			continue
		}
		ValidateTemplate(name, t, &issues)
	}
	if len(issues) > 0 {
		return &ValidationError{File: file, Issues: issues}
	}
	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
