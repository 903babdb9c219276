package watch

import (
	"path/filepath"
	"strings"
)

// DefaultInclude lists the document types the inbox accepts.
var DefaultInclude = []string{"*.txt", "*.md"}

// DefaultExclude skips hidden files and editor or partial-upload leftovers.
var DefaultExclude = []string{".*", "*~", "*.tmp", "*.part", "*.swp"}

// PatternFilter filters file names against include and exclude globs.
type PatternFilter struct {
	Include []string
	Exclude []string
}

// NewPatternFilter creates a filter. Nil slices fall back to the defaults.
func NewPatternFilter(include, exclude []string) *PatternFilter {
	if include == nil {
		include = DefaultInclude
	}
	if exclude == nil {
		exclude = DefaultExclude
	}
	return &PatternFilter{Include: include, Exclude: exclude}
}

// Matches reports whether the base name of path passes the filter.
// Excludes win; with includes set, at least one must match.
func (f *PatternFilter) Matches(path string) bool {
	base := filepath.Base(path)

	for _, pattern := range f.Exclude {
		if matched, _ := filepath.Match(pattern, base); matched {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, pattern := range f.Include {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// DocumentID derives the document id from a file name: the base name without extension.
func DocumentID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
