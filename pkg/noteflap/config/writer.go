package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// WriteSectionValue sets key = "value" inside [section] of the config.toml
// at path, preserving every other line verbatim (comments, other sections,
// formatting). If the key already exists (commented out or not) its line is
// replaced; otherwise the new key is appended at the end of the section.
//
// Grounded on original_source/config.py:write_section_values, which performs
// the same line-oriented in-place edit rather than round-tripping through a
// TOML encoder — a full decode/re-encode would drop comments and reorder
// keys, losing the user's hand-edited config.toml layout.
func WriteSectionValue(path, section, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := strings.Split(string(data), "\n")

	sectionHeader := "[" + section + "]"
	start := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == sectionHeader {
			start = i
			break
		}
	}
	if start == -1 {
		return fmt.Errorf("section %q missing from %s", section, path)
	}

	end := len(lines)
	for i := start + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			end = i
			break
		}
	}

	keyPattern := regexp.MustCompile(`^\s*#?\s*` + regexp.QuoteMeta(key) + `\s*=`)
	newLine := fmt.Sprintf("%s = %q", key, value)

	replaced := false
	for i := start + 1; i < end; i++ {
		if keyPattern.MatchString(lines[i]) {
			lines[i] = newLine
			replaced = true
			break
		}
	}
	if !replaced {
		insertAt := end
		out := make([]string, 0, len(lines)+1)
		out = append(out, lines[:insertAt]...)
		out = append(out, newLine)
		out = append(out, lines[insertAt:]...)
		lines = out
	}

	return os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o600)
}
