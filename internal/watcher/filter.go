// Package watcher monitors the scenarios directory and re-applies the
// replacement map to scenario files as they change.
package watcher

import (
	"path/filepath"
	"strings"
)

// DefaultIgnorePatterns returns the default patterns for editor temp files
// to ignore.
func DefaultIgnorePatterns() []string {
	return []string{
		"*.tmp",
		"*.swp", // vim swap
		"*~",    // emacs backup
		".#*",   // emacs lock
	}
}

// FileFilter decides which file events are worth processing. Only .json
// files pass, dotfiles never do, and configurable glob patterns exclude
// editor temp files.
type FileFilter struct {
	patterns []string
}

// NewFileFilter creates a FileFilter with the given patterns. If patterns
// is empty, the defaults are used.
func NewFileFilter(patterns []string) *FileFilter {
	if len(patterns) == 0 {
		patterns = DefaultIgnorePatterns()
	}
	return &FileFilter{patterns: patterns}
}

// ShouldIgnore reports whether a path should be skipped. Matching is
// against the base name only.
func (f *FileFilter) ShouldIgnore(path string) bool {
	filename := filepath.Base(path)

	if !strings.HasSuffix(filename, ".json") {
		return true
	}
	if strings.HasPrefix(filename, ".") {
		return true
	}

	for _, pattern := range f.patterns {
		if matched, err := filepath.Match(pattern, filename); err == nil && matched {
			return true
		}
	}
	return false
}

// Patterns returns a copy of the current ignore patterns.
func (f *FileFilter) Patterns() []string {
	out := make([]string, len(f.patterns))
	copy(out, f.patterns)
	return out
}
