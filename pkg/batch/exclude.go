package batch

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExcludePatterns skips archive debris left by common operating systems
var DefaultExcludePatterns = []string{
	"__MACOSX/**",
	"**/.DS_Store",
	"**/Thumbs.db",
}

// Excluder decides whether an input should be skipped.
// Patterns use doublestar syntax:
//   - Simple glob patterns: *.tmp, *.log (matched against the base name)
//   - Directory patterns: .git/ (anything below that directory)
//   - Path patterns: build/*, **/test/*
type Excluder struct {
	patterns []string
}

// NewExcluder validates patterns and returns an Excluder
func NewExcluder(patterns []string) (*Excluder, error) {
	e := &Excluder{}
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if strings.HasSuffix(pattern, "/") {
			pattern += "**"
		}
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern: %q", pattern)
		}
		e.patterns = append(e.patterns, pattern)
	}
	return e, nil
}

// Patterns returns the normalized patterns
func (e *Excluder) Patterns() []string {
	return e.patterns
}

// Match reports whether the slash-separated name is excluded
func (e *Excluder) Match(name string) bool {
	if e == nil || len(e.patterns) == 0 {
		return false
	}

	baseName := path.Base(name)
	for _, pattern := range e.patterns {
		target := name
		// Pattern without a separator applies to the base name only
		if !strings.Contains(pattern, "/") {
			target = baseName
		}
		if ok, _ := doublestar.Match(pattern, target); ok {
			return true
		}
	}
	return false
}
