// Package rules implements the mapping rule engine used to rewrite
// measurement names, field names and tag values while copying points
// between buckets.
package rules

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher is the closed set of value matchers a rule can carry: exact,
// regex, or wildcard prefix. Apply reports whether the rule fires for the
// given value and, if so, the rewritten value.
//
// Matching semantics differ per kind, so fallback chains work the way
// operators expect when stacking several rules for the same key:
//   - exact fires on equality, even when the replacement equals the input
//   - regex fires only when substitution changes the value
//   - wildcard fires only when the prefix swap changes the value
type Matcher interface {
	Apply(value string) (string, bool)
}

type exactMatcher struct {
	from string
	to   string
}

// NewExactMatcher matches values byte-for-byte equal to from.
func NewExactMatcher(from, to string) Matcher {
	return exactMatcher{from: from, to: to}
}

func (m exactMatcher) Apply(value string) (string, bool) {
	if value != m.from {
		return "", false
	}
	return m.to, true
}

type regexMatcher struct {
	re          *regexp.Regexp
	replacement string
}

// NewRegexMatcher matches values against pattern and substitutes with
// replacement, which may reference capture groups ($1, $2, ...).
func NewRegexMatcher(pattern, replacement string) (Matcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
	}
	return regexMatcher{re: re, replacement: replacement}, nil
}

func (m regexMatcher) Apply(value string) (string, bool) {
	if !m.re.MatchString(value) {
		return "", false
	}
	out := m.re.ReplaceAllString(value, m.replacement)
	// A substitution that leaves the value unchanged is a non-match, so a
	// later rule for the same key still gets a chance to fire.
	if out == value {
		return "", false
	}
	return out, true
}

type wildcardMatcher struct {
	prefix   string
	toPrefix string
}

// NewWildcardMatcher matches values starting with prefix and replaces that
// prefix with toPrefix, preserving the remainder. The literal prefix is
// stored at parse time rather than recovered from a compiled pattern.
func NewWildcardMatcher(prefix, toPrefix string) Matcher {
	return wildcardMatcher{prefix: prefix, toPrefix: toPrefix}
}

func (m wildcardMatcher) Apply(value string) (string, bool) {
	if !strings.HasPrefix(value, m.prefix) {
		return "", false
	}
	out := m.toPrefix + value[len(m.prefix):]
	if out == value {
		return "", false
	}
	return out, true
}
