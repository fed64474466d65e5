// Package window partitions an absolute time range into bounded chunks so
// per-window result sets stay small.
package window

import (
	"fmt"
	"time"
)

// Window is a half-open time sub-range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Plan splits [start, stop) into consecutive, non-overlapping windows of the
// given step. The final window is clamped to stop, so the sequence covers
// the range exactly. Requires start < stop and step > 0.
func Plan(start, stop time.Time, step time.Duration) ([]Window, error) {
	if !start.Before(stop) {
		return nil, fmt.Errorf("start %s must be before stop %s", start.Format(time.RFC3339), stop.Format(time.RFC3339))
	}
	if step <= 0 {
		return nil, fmt.Errorf("window duration must be positive, got %s", step)
	}

	var windows []Window
	for cur := start; cur.Before(stop); {
		end := cur.Add(step)
		if end.After(stop) {
			end = stop
		}
		windows = append(windows, Window{Start: cur, End: end})
		cur = end
	}
	return windows, nil
}
