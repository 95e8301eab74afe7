// Package ignore implements exclusion of files from synchronization based on
// basename and relative-path glob patterns.
package ignore

import (
	"path"
	"strings"

	"github.com/pkg/errors"
)

// Matcher decides whether a relative path within a synchronized root is
// excluded from synchronization.
type Matcher struct {
	namePatterns []string
	pathPatterns []string
}

// NewMatcher validates the provided basename and relative-path glob patterns
// and returns a matcher for them.
func NewMatcher(namePatterns, pathPatterns []string) (*Matcher, error) {
	m := &Matcher{}

	for _, p := range namePatterns {
		if strings.Contains(p, "/") {
			return nil, errors.Errorf("basename pattern must not contain a path separator: %q", p)
		}

		if _, err := path.Match(p, "x"); err != nil {
			return nil, errors.Wrapf(err, "invalid pattern %q", p)
		}

		m.namePatterns = append(m.namePatterns, p)
	}

	for _, p := range pathPatterns {
		np, err := normalizePathPattern(p)
		if err != nil {
			return nil, err
		}

		if _, err := path.Match(np, "x"); err != nil {
			return nil, errors.Wrapf(err, "invalid pattern %q", p)
		}

		m.pathPatterns = append(m.pathPatterns, np)
	}

	return m, nil
}

// normalizePathPattern removes duplicate, leading and trailing separators and
// rejects non-relative patterns.
func normalizePathPattern(p string) (string, error) {
	if strings.HasPrefix(p, "/") {
		return "", errors.Errorf("path pattern must be relative: %q", p)
	}

	var parts []string

	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			parts = append(parts, seg)
		}
	}

	if len(parts) == 0 {
		return "", errors.Errorf("empty path pattern: %q", p)
	}

	return strings.Join(parts, "/"), nil
}

// Active returns true if the matcher has any patterns.
func (m *Matcher) Active() bool {
	return m != nil && (len(m.namePatterns) > 0 || len(m.pathPatterns) > 0)
}

// Match returns true if the entry with the given root-relative path and
// basename matches any exclusion pattern.
func (m *Matcher) Match(relPath, base string) bool {
	if !m.Active() {
		return false
	}

	for _, p := range m.namePatterns {
		if ok, _ := path.Match(p, base); ok {
			return true
		}
	}

	for _, p := range m.pathPatterns {
		if ok, _ := path.Match(p, relPath); ok {
			return true
		}
	}

	return false
}

// NamePatterns returns the basename glob patterns.
func (m *Matcher) NamePatterns() []string {
	if m == nil {
		return nil
	}

	return m.namePatterns
}

// PathPatterns returns the normalized relative-path glob patterns.
func (m *Matcher) PathPatterns() []string {
	if m == nil {
		return nil
	}

	return m.pathPatterns
}
