package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	now, _ := time.Parse(time.RFC3339, "2025-06-01T12:00:00Z")

	tests := []struct {
		in   string
		want string
	}{
		{"now()", "2025-06-01T12:00:00Z"},
		{"2025-03-15T08:00:00Z", "2025-03-15T08:00:00Z"},
		{"2025-03-15T08:00:00.5Z", "2025-03-15T08:00:00.5Z"},
		{"2025-03-15T08:00:00", "2025-03-15T08:00:00Z"},
		{"2025-03-15", "2025-03-15T00:00:00Z"},
		{"-4d", "2025-05-28T12:00:00Z"},
		{"-30m", "2025-06-01T11:30:00Z"},
		{"-1w", "2025-05-25T12:00:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTime(tt.in, now)
			require.NoError(t, err)
			want, err := time.Parse(time.RFC3339Nano, tt.want)
			require.NoError(t, err)
			assert.True(t, got.Equal(want), "got %s, want %s", got, want)
		})
	}
}

func TestParseTimeErrors(t *testing.T) {
	now := time.Now()
	for _, in := range []string{"", "yesterday", "4d", "-4x", "03/15/2025"} {
		_, err := parseTime(in, now)
		assert.Error(t, err, "input %q", in)
	}
}

func TestParseWindow(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"30s", 30 * time.Second},
		{"30m", 30 * time.Minute},
		{"6h", 6 * time.Hour},
		{"1d", 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseWindow(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseWindowErrors(t *testing.T) {
	for _, in := range []string{"", "6", "h", "-6h", "6 h", "6x"} {
		_, err := parseWindow(in)
		assert.Error(t, err, "input %q", in)
	}
}
