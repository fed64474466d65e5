// Package flux builds the Flux query submitted to the source instance for
// each copy window.
package flux

import (
	"fmt"
	"strings"
	"time"
)

// TagFilter restricts the source query to rows whose tag matches a value
// exactly or by regex.
type TagFilter struct {
	Key   string
	Value string
	Regex bool
}

// ParseTagFilter parses a --tag spec: KEY=VALUE for an exact filter or
// KEY=~/PATTERN/ for a regex filter.
func ParseTagFilter(spec string) (TagFilter, error) {
	if key, pattern, ok := strings.Cut(spec, "=~/"); ok {
		if key == "" || !strings.HasSuffix(pattern, "/") {
			return TagFilter{}, fmt.Errorf("invalid tag filter %q: expected KEY=~/PATTERN/", spec)
		}
		return TagFilter{Key: key, Value: strings.TrimSuffix(pattern, "/"), Regex: true}, nil
	}
	key, value, ok := strings.Cut(spec, "=")
	if !ok || key == "" {
		return TagFilter{}, fmt.Errorf("invalid tag filter %q: expected KEY=VALUE", spec)
	}
	return TagFilter{Key: key, Value: value}, nil
}

// QuerySpec describes one window's source query. Built fresh per window and
// never mutated after construction.
type QuerySpec struct {
	Bucket string
	Start  time.Time
	Stop   time.Time

	// Measurement selection: an explicit list or a single regex, never both.
	Measurements     []string
	MeasurementRegex string

	TagFilters []TagFilter

	// Fields selects specific field names; empty means all fields.
	Fields []string
}

// Validate rejects specs that set both measurement selectors.
func (s *QuerySpec) Validate() error {
	if len(s.Measurements) > 0 && s.MeasurementRegex != "" {
		return fmt.Errorf("measurement list and measurement regex are mutually exclusive")
	}
	return nil
}

// Build renders the Flux pipeline for this spec.
func (s *QuerySpec) Build() string {
	var lines []string
	lines = append(lines, fmt.Sprintf("from(bucket: %q)", s.Bucket))
	lines = append(lines, fmt.Sprintf("  |> range(start: %s, stop: %s)",
		s.Start.UTC().Format(time.RFC3339Nano), s.Stop.UTC().Format(time.RFC3339Nano)))

	if len(s.Measurements) > 0 {
		terms := make([]string, 0, len(s.Measurements))
		for _, m := range s.Measurements {
			terms = append(terms, fmt.Sprintf("r._measurement == %q", m))
		}
		lines = append(lines, fmt.Sprintf("  |> filter(fn: (r) => %s)", strings.Join(terms, " or ")))
	} else if s.MeasurementRegex != "" {
		lines = append(lines, fmt.Sprintf("  |> filter(fn: (r) => r._measurement =~ /%s/)", s.MeasurementRegex))
	}

	for _, tf := range s.TagFilters {
		if tf.Regex {
			lines = append(lines, fmt.Sprintf("  |> filter(fn: (r) => exists r.%s and r.%s =~ /%s/)", tf.Key, tf.Key, tf.Value))
		} else {
			lines = append(lines, fmt.Sprintf("  |> filter(fn: (r) => exists r.%s and r.%s == %q)", tf.Key, tf.Key, tf.Value))
		}
	}

	if len(s.Fields) > 0 {
		terms := make([]string, 0, len(s.Fields))
		for _, f := range s.Fields {
			terms = append(terms, fmt.Sprintf("r._field == %q", f))
		}
		lines = append(lines, fmt.Sprintf("  |> filter(fn: (r) => %s)", strings.Join(terms, " or ")))
	} else {
		// Wildcard all fields when none are requested.
		lines = append(lines, "  |> filter(fn: (r) => r._field =~ /.*/)")
	}

	return strings.Join(lines, "\n")
}
