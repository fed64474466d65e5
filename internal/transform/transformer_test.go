package transform

import (
	"testing"
	"time"

	"github.com/basekick-labs/fluxcopy/internal/influx"
	"github.com/basekick-labs/fluxcopy/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTagRule(t *testing.T, spec string) rules.TagRule {
	t.Helper()
	r, err := rules.ParseTagRule(spec)
	require.NoError(t, err)
	return r
}

func mustNameRule(t *testing.T, spec string) rules.NameRule {
	t.Helper()
	r, err := rules.ParseNameRule(spec)
	require.NoError(t, err)
	return r
}

func mustInjectRule(t *testing.T, spec string) rules.InjectRule {
	t.Helper()
	r, err := rules.ParseInjectRule(spec)
	require.NoError(t, err)
	return r
}

// The reference scenario: a heater reading renamed and retagged for the new
// control panel naming scheme.
func TestTransformFullPipeline(t *testing.T) {
	ts, _ := time.Parse(time.RFC3339, "2025-01-01T01:00:00Z")
	tr := &Transformer{
		MeasurementRules: []rules.NameRule{mustNameRule(t, "heaters->control")},
		TagRules:         []rules.TagRule{mustTagRule(t, "id=heaters*->control")},
		InjectRules:      []rules.InjectRule{mustInjectRule(t, "env=production")},
	}

	point, ok := tr.Transform(influx.RawRecord{
		Measurement: "heaters",
		Field:       "temp",
		Value:       21.5,
		Time:        ts,
		Tags:        map[string]string{"id": "heaters_LHT_1", "device": "X"},
	})
	require.True(t, ok)

	assert.Equal(t, "control", point.Measurement)
	assert.Equal(t, "temp", point.Field)
	assert.Equal(t, 21.5, point.Value)
	assert.Equal(t, ts, point.Time)
	assert.Equal(t, map[string]string{
		"id":     "control_LHT_1",
		"device": "X",
		"env":    "production",
	}, point.Tags)
}

func TestTransformNoRulesPassThrough(t *testing.T) {
	ts := time.Now()
	tr := &Transformer{}

	point, ok := tr.Transform(influx.RawRecord{
		Measurement: "sensors",
		Field:       "pressure",
		Value:       int64(3),
		Time:        ts,
		Tags:        map[string]string{"id": "sensors_X"},
	})
	require.True(t, ok)
	assert.Equal(t, "sensors", point.Measurement)
	assert.Equal(t, "pressure", point.Field)
	assert.Equal(t, map[string]string{"id": "sensors_X"}, point.Tags)
}

func TestTransformRejectsMalformedRecords(t *testing.T) {
	ts := time.Now()
	tr := &Transformer{}

	tests := []struct {
		name string
		rec  influx.RawRecord
	}{
		{"missing measurement", influx.RawRecord{Field: "temp", Time: ts}},
		{"missing field", influx.RawRecord{Measurement: "heaters", Time: ts}},
		{"missing timestamp", influx.RawRecord{Measurement: "heaters", Field: "temp"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := tr.Transform(tt.rec)
			assert.False(t, ok)
		})
	}
}

func TestTransformInjectionReadsOriginalTags(t *testing.T) {
	// The derived injection sees the pre-mapping tag value even though a
	// tag-map rewrites the same key.
	ts := time.Now()
	tr := &Transformer{
		TagRules:    []rules.TagRule{mustTagRule(t, "rack=prod-*->legacy-")},
		InjectRules: []rules.InjectRule{mustInjectRule(t, "zone=rack:prod-*->west-")},
	}

	point, ok := tr.Transform(influx.RawRecord{
		Measurement: "m",
		Field:       "f",
		Value:       1.0,
		Time:        ts,
		Tags:        map[string]string{"rack": "prod-12"},
	})
	require.True(t, ok)
	assert.Equal(t, "legacy-12", point.Tags["rack"])
	assert.Equal(t, "west-12", point.Tags["zone"])
}

func TestTransformInjectedKeyWinsOverExisting(t *testing.T) {
	ts := time.Now()
	tr := &Transformer{
		InjectRules: []rules.InjectRule{mustInjectRule(t, "env=production")},
	}

	point, ok := tr.Transform(influx.RawRecord{
		Measurement: "m",
		Field:       "f",
		Value:       1.0,
		Time:        ts,
		Tags:        map[string]string{"env": "staging"},
	})
	require.True(t, ok)
	assert.Equal(t, "production", point.Tags["env"])
}

func TestTransformFieldRename(t *testing.T) {
	ts := time.Now()
	tr := &Transformer{
		FieldRules: []rules.NameRule{mustNameRule(t, "temp->temperature")},
	}

	point, ok := tr.Transform(influx.RawRecord{
		Measurement: "m",
		Field:       "temp",
		Value:       1.0,
		Time:        ts,
	})
	require.True(t, ok)
	assert.Equal(t, "temperature", point.Field)
}
