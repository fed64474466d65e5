// Package influx provides the time-series client capability consumed by the
// copy orchestrator: a streaming Flux query against the source instance and
// batched line protocol writes to the destination.
package influx

import (
	"context"
	"time"

	"github.com/basekick-labs/fluxcopy/internal/flux"
	"github.com/basekick-labs/fluxcopy/pkg/models"
)

// RawRecord is one source-side reading as yielded by the query stream. Tags
// contain every non-reserved column present on the source row; bookkeeping
// columns (result, table, _start, _stop and the measurement/field/value/time
// markers) are excluded.
type RawRecord struct {
	Measurement string
	Field       string
	Value       interface{}
	Time        time.Time
	Tags        map[string]string
}

// RecordStream is a forward-only, non-restartable sequence of records.
// The usual loop:
//
//	for stream.Next() {
//		rec := stream.Record()
//		...
//	}
//	if err := stream.Err(); err != nil { ... }
type RecordStream interface {
	// Next advances to the next record, blocking until the source yields
	// one. It returns false at end of stream or on error.
	Next() bool
	// Record returns the current record. Valid only after Next returned true.
	Record() RawRecord
	// Err returns the first error encountered while streaming, if any.
	Err() error
	// Close releases the underlying response. Safe to call more than once.
	Close() error
}

// Client is the capability the orchestrator consumes. Query and write
// failures are transport errors and abort the run.
type Client interface {
	// QueryStream opens a lazy record stream for the given window spec.
	QueryStream(ctx context.Context, spec flux.QuerySpec) (RecordStream, error)
	// WritePoints writes one batch of points to the given bucket.
	WritePoints(ctx context.Context, bucket string, points []*models.Point) error
	// Close releases the client's connections.
	Close() error
}
