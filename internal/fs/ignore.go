package fs

import (
	"path"
	"strings"
)

// DefaultImportIgnore are always applied to zip and folder imports.
// They drop macOS resource forks and any hidden path component.
var DefaultImportIgnore = []string{"__MACOSX", ".*"}

// ignorePattern is a parsed ignore pattern with its matching strategy.
type ignorePattern struct {
	pattern   string
	matchPath bool // true = match against the whole relative path; false = against each component
}

// IgnoreMatcher decides which entries of an imported archive or folder are
// skipped. Patterns without '/' are matched against every component of the
// entry path, so "__MACOSX" skips the whole resource-fork tree. Patterns
// with '/' match against the full slash-separated path.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from the defaults plus raw
// pattern strings. Blank lines and lines starting with '#' are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []ignorePattern
	for _, raw := range append(append([]string{}, DefaultImportIgnore...), rawPatterns...) {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		patterns = append(patterns, ignorePattern{
			pattern:   raw,
			matchPath: strings.Contains(raw, "/"),
		})
	}
	return &IgnoreMatcher{patterns: patterns}
}

// Match reports whether the slash-separated entry path should be skipped.
// Backslashes are treated as separators.
func (m *IgnoreMatcher) Match(entryPath string) bool {
	normalized := strings.Trim(strings.ReplaceAll(entryPath, "\\", "/"), "/")
	components := strings.Split(normalized, "/")

	for _, p := range m.patterns {
		if p.matchPath {
			if ok, err := path.Match(p.pattern, normalized); err == nil && ok {
				return true
			}
			continue
		}
		for _, c := range components {
			matched, err := path.Match(p.pattern, c)
			if err != nil {
				// Bad pattern, skip rather than crash.
				break
			}
			if matched {
				return true
			}
		}
	}
	return false
}
