package influx

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"
)

// reservedColumns are annotated CSV bookkeeping columns that never become
// tags on the copied point.
var reservedColumns = map[string]bool{
	"result":       true,
	"table":        true,
	"_start":       true,
	"_stop":        true,
	"_time":        true,
	"_measurement": true,
	"_field":       true,
	"_value":       true,
}

// csvStream decodes the annotated CSV body of a Flux query response into
// RawRecords, one row at a time. The reader is pull-based: each Next call
// consumes exactly as much of the response as one record needs, so memory
// stays bounded regardless of window size.
type csvStream struct {
	body    io.ReadCloser
	reader  *csv.Reader
	current RawRecord
	err     error
	closed  bool

	// Schema of the table currently being decoded. Flux emits a fresh
	// annotation/header block whenever the result schema changes.
	columns   []string
	datatypes []string
}

func newCSVStream(body io.ReadCloser) *csvStream {
	r := csv.NewReader(body)
	r.FieldsPerRecord = -1
	r.Comment = 0 // annotations are parsed, not skipped
	return &csvStream{body: body, reader: r}
}

func (s *csvStream) Next() bool {
	if s.err != nil || s.closed {
		return false
	}
	for {
		row, err := s.reader.Read()
		if err == io.EOF {
			return false
		}
		if err != nil {
			s.err = err
			return false
		}
		if len(row) == 0 {
			continue
		}

		switch {
		case strings.HasPrefix(row[0], "#"):
			if row[0] == "#datatype" {
				s.datatypes = row
			}
			continue
		case isHeaderRow(row):
			s.columns = row
			continue
		}

		if len(s.columns) == 0 {
			// Data before any header; nothing to map columns with.
			continue
		}
		s.current = s.decodeRow(row)
		return true
	}
}

// isHeaderRow detects the column header that follows the annotation block:
// an empty leading cell followed by the literal result/table columns.
func isHeaderRow(row []string) bool {
	return len(row) > 2 && row[0] == "" && row[1] == "result" && row[2] == "table"
}

// decodeRow maps one data row onto a RawRecord using the current table
// schema. Missing or unparsable measurement/field/time surface as zero
// values; the transformer rejects such records.
func (s *csvStream) decodeRow(row []string) RawRecord {
	rec := RawRecord{Tags: make(map[string]string)}

	for i, col := range s.columns {
		if i >= len(row) || col == "" {
			continue
		}
		val := row[i]
		switch col {
		case "_measurement":
			rec.Measurement = val
		case "_field":
			rec.Field = val
		case "_value":
			rec.Value = parseTypedValue(val, s.datatypeAt(i))
		case "_time":
			if t, err := time.Parse(time.RFC3339Nano, val); err == nil {
				rec.Time = t
			}
		default:
			if !reservedColumns[col] && !strings.HasPrefix(col, "_") && val != "" {
				rec.Tags[col] = val
			}
		}
	}

	return rec
}

func (s *csvStream) datatypeAt(i int) string {
	if i < len(s.datatypes) {
		return s.datatypes[i]
	}
	return ""
}

// parseTypedValue converts a CSV cell per its #datatype annotation.
func parseTypedValue(val, datatype string) interface{} {
	switch datatype {
	case "double":
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	case "long":
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	case "unsignedLong":
		if n, err := strconv.ParseUint(val, 10, 64); err == nil {
			return n
		}
	case "boolean":
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return val
}

func (s *csvStream) Record() RawRecord { return s.current }

func (s *csvStream) Err() error { return s.err }

func (s *csvStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
