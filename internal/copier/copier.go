// Package copier drives the windowed copy: plan windows, stream source
// records, transform, and dispatch to the configured sink.
package copier

import (
	"context"
	"fmt"
	"time"

	"github.com/basekick-labs/fluxcopy/internal/flux"
	"github.com/basekick-labs/fluxcopy/internal/influx"
	"github.com/basekick-labs/fluxcopy/internal/transform"
	"github.com/basekick-labs/fluxcopy/internal/window"
	"github.com/basekick-labs/fluxcopy/pkg/models"
	"github.com/rs/zerolog"
)

// Mode selects where transformed points go.
type Mode string

const (
	// ModeWrite batches points and writes them to the destination bucket.
	ModeWrite Mode = "write"
	// ModeDryRun transforms and logs every point without writing.
	ModeDryRun Mode = "dry-run"
	// ModeVerify counts raw source records per window; no transform, no write.
	ModeVerify Mode = "verify"
)

// DefaultBatchSize bounds buffered points between flushes.
const DefaultBatchSize = 5000

// Options configures one copy run. Validated before any window is processed.
type Options struct {
	SrcBucket string
	DstBucket string

	Start  time.Time
	Stop   time.Time
	Window time.Duration

	BatchSize int
	Mode      Mode

	Measurements     []string
	MeasurementRegex string
	TagFilters       []flux.TagFilter
	Fields           []string
}

// Validate fails fast on configuration errors, before any query runs.
func (o *Options) Validate() error {
	if o.SrcBucket == "" {
		return fmt.Errorf("source bucket is required")
	}
	if o.Mode == ModeWrite && o.DstBucket == "" {
		return fmt.Errorf("destination bucket is required")
	}
	if o.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", o.BatchSize)
	}
	switch o.Mode {
	case ModeWrite, ModeDryRun, ModeVerify:
	default:
		return fmt.Errorf("unknown mode %q", o.Mode)
	}
	if len(o.Measurements) > 0 && o.MeasurementRegex != "" {
		return fmt.Errorf("--measurement and --measurement-regex are mutually exclusive")
	}
	return nil
}

// Summary reports the run's totals.
type Summary struct {
	Windows int
	Records int64 // raw records yielded by the source
	Written int64 // points flushed to the destination
	Skipped int64 // malformed records dropped
}

// Copier copies points from a source bucket to a destination bucket across
// a bounded time range, one window at a time. Execution is single-threaded:
// windows are processed strictly in time order and records in stream order.
type Copier struct {
	src         influx.Client
	dst         influx.Client
	transformer *transform.Transformer
	opts        Options
	logger      zerolog.Logger
}

// New builds a copier. The two clients stay open for the whole run; the
// caller releases them.
func New(src, dst influx.Client, t *transform.Transformer, opts Options, logger zerolog.Logger) *Copier {
	return &Copier{
		src:         src,
		dst:         dst,
		transformer: t,
		opts:        opts,
		logger:      logger.With().Str("component", "copier").Logger(),
	}
}

// Run processes every planned window in order. A transport error aborts the
// run; windows already flushed stay written on the destination. Re-running
// the same range relies on the destination overwriting points with an
// identical measurement+tags+field+timestamp key.
func (c *Copier) Run(ctx context.Context) (Summary, error) {
	if err := c.opts.Validate(); err != nil {
		return Summary{}, err
	}

	windows, err := window.Plan(c.opts.Start, c.opts.Stop, c.opts.Window)
	if err != nil {
		return Summary{}, err
	}

	c.logger.Info().
		Str("mode", string(c.opts.Mode)).
		Int("windows", len(windows)).
		Time("start", c.opts.Start).
		Time("stop", c.opts.Stop).
		Dur("window", c.opts.Window).
		Msg("Starting copy")

	var summary Summary
	for i, win := range windows {
		c.logger.Info().
			Int("window", i+1).
			Int("total_windows", len(windows)).
			Time("start", win.Start).
			Time("stop", win.End).
			Msg("Processing window")

		records, written, skipped, err := c.copyWindow(ctx, win)
		summary.Windows++
		summary.Records += records
		summary.Written += written
		summary.Skipped += skipped
		if err != nil {
			return summary, fmt.Errorf("window %d [%s, %s): %w",
				i+1, win.Start.Format(time.RFC3339), win.End.Format(time.RFC3339), err)
		}

		evt := c.logger.Info().
			Int("window", i+1).
			Int64("records", records).
			Int64("total_records", summary.Records)
		if c.opts.Mode == ModeWrite {
			evt = evt.Int64("written", written).Int64("total_written", summary.Written)
		}
		if skipped > 0 {
			evt = evt.Int64("skipped", skipped)
		}
		evt.Msg("Window complete")
	}

	c.logger.Info().
		Str("mode", string(c.opts.Mode)).
		Int("windows", summary.Windows).
		Int64("records", summary.Records).
		Int64("written", summary.Written).
		Int64("skipped", summary.Skipped).
		Msg("Copy complete")

	return summary, nil
}

// copyWindow streams one window's records through the configured sink.
func (c *Copier) copyWindow(ctx context.Context, win window.Window) (records, written, skipped int64, err error) {
	spec := flux.QuerySpec{
		Bucket:           c.opts.SrcBucket,
		Start:            win.Start,
		Stop:             win.End,
		Measurements:     c.opts.Measurements,
		MeasurementRegex: c.opts.MeasurementRegex,
		TagFilters:       c.opts.TagFilters,
		Fields:           c.opts.Fields,
	}

	stream, err := c.src.QueryStream(ctx, spec)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("query failed: %w", err)
	}
	defer stream.Close()

	var batch []*models.Point
	if c.opts.Mode == ModeWrite {
		batch = make([]*models.Point, 0, c.opts.BatchSize)
	}

	for stream.Next() {
		records++

		// Verify measures source cardinality only; the transform is skipped
		// entirely.
		if c.opts.Mode == ModeVerify {
			continue
		}

		point, ok := c.transformer.Transform(stream.Record())
		if !ok {
			skipped++
			continue
		}

		if c.opts.Mode == ModeDryRun {
			c.logger.Info().
				Str("point", point.LineProtocol()).
				Msg("Dry-run point")
			continue
		}

		batch = append(batch, point)
		if len(batch) >= c.opts.BatchSize {
			if err := c.dst.WritePoints(ctx, c.opts.DstBucket, batch); err != nil {
				return records, written, skipped, err
			}
			written += int64(len(batch))
			batch = batch[:0]
		}
	}
	if err := stream.Err(); err != nil {
		return records, written, skipped, fmt.Errorf("stream failed: %w", err)
	}

	if len(batch) > 0 {
		if err := c.dst.WritePoints(ctx, c.opts.DstBucket, batch); err != nil {
			return records, written, skipped, err
		}
		written += int64(len(batch))
	}

	return records, written, skipped, nil
}
