// Package transform composes the mapping rules into the per-record
// transformation applied while copying.
package transform

import (
	"github.com/basekick-labs/fluxcopy/internal/influx"
	"github.com/basekick-labs/fluxcopy/internal/rules"
	"github.com/basekick-labs/fluxcopy/pkg/models"
)

// Transformer rewrites one raw source record into a destination point.
// Rule lists are parsed once at startup and never change during a run.
type Transformer struct {
	MeasurementRules []rules.NameRule
	FieldRules       []rules.NameRule
	TagRules         []rules.TagRule
	InjectRules      []rules.InjectRule
}

// Transform applies the rule pipeline in fixed order: measurement rename,
// per-tag value rewrite, tag injection, field rename. Value and timestamp
// pass through unchanged. Records missing a measurement, field or timestamp
// are rejected; the caller skips them.
//
// Injection rules read the record's original tag values, not the remapped
// ones, so a --tag-map on a key does not change what a derived --tag-inject
// sees. Injected keys take precedence over same-named existing tags.
func (t *Transformer) Transform(rec influx.RawRecord) (*models.Point, bool) {
	if rec.Measurement == "" || rec.Field == "" || rec.Time.IsZero() {
		return nil, false
	}

	tags := make(map[string]string, len(rec.Tags))
	for k, v := range rec.Tags {
		tags[k] = rules.MapTagValue(k, v, t.TagRules)
	}

	for k, v := range rules.InjectTags(rec.Tags, t.InjectRules) {
		tags[k] = v
	}

	return &models.Point{
		Measurement: rules.MapName(rec.Measurement, t.MeasurementRules),
		Field:       rules.MapName(rec.Field, t.FieldRules),
		Value:       rec.Value,
		Time:        rec.Time,
		Tags:        tags,
	}, true
}
