package rules

import (
	"fmt"
	"strings"
)

// Rule spec grammar, shared by all repeatable rule flags:
//
//	exact      FROM->TO                e.g. heaters->control
//	wildcard   PREFIX*->TOPREFIX       e.g. heaters*->control
//	regex      ~/PATTERN/->REPL        e.g. ~/^prod-(\d+)$/->stage-$1
//
// Tag rules scope the spec with a key: KEY=SPEC. Injection rules are either
// a static NEWKEY=VALUE or a derived NEWKEY=SOURCEKEY:SPEC.

// ParseNameRule parses a --measurement-map or --field-map spec. Name rules
// support exact and regex matching; a trailing '*' is matched literally.
func ParseNameRule(spec string) (NameRule, error) {
	from, to, err := splitArrow(spec)
	if err != nil {
		return NameRule{}, fmt.Errorf("invalid name map %q: %w", spec, err)
	}
	if pattern, ok := regexPattern(from); ok {
		m, err := NewRegexMatcher(pattern, to)
		if err != nil {
			return NameRule{}, fmt.Errorf("invalid name map %q: %w", spec, err)
		}
		return NameRule{Matcher: m}, nil
	}
	return NameRule{Matcher: NewExactMatcher(from, to)}, nil
}

// ParseTagRule parses a --tag-map spec of the form KEY=FROM->TO.
func ParseTagRule(spec string) (TagRule, error) {
	key, rest, ok := strings.Cut(spec, "=")
	if !ok || key == "" {
		return TagRule{}, fmt.Errorf("invalid tag map %q: expected KEY=FROM->TO", spec)
	}
	from, to, err := splitArrow(rest)
	if err != nil {
		return TagRule{}, fmt.Errorf("invalid tag map %q: %w", spec, err)
	}
	m, err := matcherFor(from, to)
	if err != nil {
		return TagRule{}, fmt.Errorf("invalid tag map %q: %w", spec, err)
	}
	return TagRule{Key: key, Matcher: m}, nil
}

// ParseInjectRule parses a --tag-inject spec: NEWKEY=VALUE for a static
// injection, or NEWKEY=SOURCEKEY:FROM->TO for one derived from an existing
// tag's value.
func ParseInjectRule(spec string) (InjectRule, error) {
	key, rest, ok := strings.Cut(spec, "=")
	if !ok || key == "" {
		return InjectRule{}, fmt.Errorf("invalid tag inject %q: expected KEY=VALUE", spec)
	}
	if !strings.Contains(rest, "->") {
		return InjectRule{NewKey: key, Static: true, Value: rest}, nil
	}
	sourceKey, mapping, ok := strings.Cut(rest, ":")
	if !ok || sourceKey == "" {
		return InjectRule{}, fmt.Errorf("invalid tag inject %q: expected KEY=SOURCEKEY:FROM->TO", spec)
	}
	from, to, err := splitArrow(mapping)
	if err != nil {
		return InjectRule{}, fmt.Errorf("invalid tag inject %q: %w", spec, err)
	}
	m, err := matcherFor(from, to)
	if err != nil {
		return InjectRule{}, fmt.Errorf("invalid tag inject %q: %w", spec, err)
	}
	return InjectRule{NewKey: key, SourceKey: sourceKey, Matcher: m}, nil
}

// splitArrow splits FROM->TO. For regex specs the arrow is located after the
// closing slash so patterns containing "->" still parse.
func splitArrow(s string) (from, to string, err error) {
	if strings.HasPrefix(s, "~/") {
		idx := strings.LastIndex(s, "/->")
		if idx < 0 {
			return "", "", fmt.Errorf("expected ~/PATTERN/->REPLACEMENT")
		}
		return s[:idx+1], s[idx+3:], nil
	}
	from, to, ok := strings.Cut(s, "->")
	if !ok {
		return "", "", fmt.Errorf("expected FROM->TO")
	}
	return from, to, nil
}

// matcherFor picks the matcher kind from the FROM side of a spec.
func matcherFor(from, to string) (Matcher, error) {
	if pattern, ok := regexPattern(from); ok {
		return NewRegexMatcher(pattern, to)
	}
	if strings.HasSuffix(from, "*") {
		return NewWildcardMatcher(strings.TrimSuffix(from, "*"), to), nil
	}
	return NewExactMatcher(from, to), nil
}

// regexPattern extracts the pattern from a ~/PATTERN/ spec.
func regexPattern(from string) (string, bool) {
	if strings.HasPrefix(from, "~/") && strings.HasSuffix(from, "/") && len(from) > 3 {
		return from[2 : len(from)-1], true
	}
	return "", false
}
