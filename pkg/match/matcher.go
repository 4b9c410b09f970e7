// Package match filters object keys with doublestar glob patterns.
package match

import (
	"errors"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher evaluates include and exclude patterns against object keys:
//   - Include patterns: key must match at least one (none configured matches all)
//   - Exclude patterns: key must not match any
//
// The Matcher is safe for concurrent use after creation.
type Matcher struct {
	includes []string
	excludes []string
}

// Config configures a Matcher.
type Config struct {
	// Includes are glob patterns that keys must match (at least one).
	// Empty means every key is included.
	Includes []string

	// Excludes are glob patterns that keys must not match (any).
	Excludes []string
}

// ErrInvalidPattern is returned when a pattern cannot be compiled.
var ErrInvalidPattern = errors.New("invalid glob pattern")

// PatternError wraps pattern-related errors with context.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// New validates the configured patterns and returns a Matcher.
func New(cfg Config) (*Matcher, error) {
	for _, set := range [][]string{cfg.Includes, cfg.Excludes} {
		for _, p := range set {
			if !doublestar.ValidatePattern(p) {
				return nil, &PatternError{Pattern: p, Err: ErrInvalidPattern}
			}
		}
	}
	return &Matcher{
		includes: append([]string(nil), cfg.Includes...),
		excludes: append([]string(nil), cfg.Excludes...),
	}, nil
}

// Empty reports whether the matcher accepts every key.
func (m *Matcher) Empty() bool {
	return m == nil || (len(m.includes) == 0 && len(m.excludes) == 0)
}

// Match reports whether key passes the include and exclude patterns.
// A nil Matcher matches everything.
func (m *Matcher) Match(key string) bool {
	if m == nil {
		return true
	}

	if len(m.includes) > 0 {
		included := false
		for _, p := range m.includes {
			if doublestar.MatchUnvalidated(p, key) {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}

	for _, p := range m.excludes {
		if doublestar.MatchUnvalidated(p, key) {
			return false
		}
	}
	return true
}
