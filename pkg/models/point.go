package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Point is a single fully transformed time-series data point, ready to be
// written to the destination bucket. A point carries exactly one field+value
// pair; wide source rows arrive as one point per field.
type Point struct {
	Measurement string            `json:"measurement"`
	Field       string            `json:"field"`
	Value       interface{}       `json:"value"`
	Time        time.Time         `json:"time"`
	Tags        map[string]string `json:"tags"`
}

// LineProtocol renders the point in InfluxDB line protocol:
//
//	measurement[,tag=value...] field=value timestamp
//
// Tags are rendered in sorted key order so the series key is deterministic
// across runs, which is what makes re-running a copy idempotent on the
// destination (overwrite by identical measurement+tags+field+timestamp).
func (p *Point) LineProtocol() string {
	var sb strings.Builder

	sb.WriteString(escapeMeasurement(p.Measurement))

	if len(p.Tags) > 0 {
		keys := make([]string, 0, len(p.Tags))
		for k := range p.Tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteByte(',')
			sb.WriteString(escapeTag(k))
			sb.WriteByte('=')
			sb.WriteString(escapeTag(p.Tags[k]))
		}
	}

	sb.WriteByte(' ')
	sb.WriteString(escapeTag(p.Field))
	sb.WriteByte('=')
	sb.WriteString(formatFieldValue(p.Value))

	sb.WriteByte(' ')
	sb.WriteString(strconv.FormatInt(p.Time.UnixNano(), 10))

	return sb.String()
}

// escapeMeasurement escapes commas and spaces in a measurement name.
func escapeMeasurement(s string) string {
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, " ", `\ `)
	return s
}

// escapeTag escapes commas, equals signs and spaces in tag keys, tag values
// and field keys.
func escapeTag(s string) string {
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, "=", `\=`)
	s = strings.ReplaceAll(s, " ", `\ `)
	return s
}

// formatFieldValue renders a field value with InfluxDB type indicators:
// integers get the 'i' suffix, unsigned the 'u' suffix, booleans are
// true/false, strings and unknown types are quoted.
func formatFieldValue(v interface{}) string {
	switch val := v.(type) {
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10) + "i"
	case int:
		return strconv.FormatInt(int64(val), 10) + "i"
	case uint64:
		return strconv.FormatUint(val, 10) + "u"
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case string:
		return `"` + escapeStringField(val) + `"`
	default:
		return `"` + escapeStringField(fmt.Sprintf("%v", val)) + `"`
	}
}

// escapeStringField escapes backslashes and double quotes in string field values.
func escapeStringField(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
