package backfill

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used in logs and telemetry tags.
const DateLayout = "2006-01-02"

// Range is an inclusive span of calendar days. It is immutable for a run.
type Range struct {
	Start time.Time
	End   time.Time
}

// NewRange normalises start and end to calendar dates and checks order.
func NewRange(start, end time.Time) (Range, error) {
	r := Range{Start: dateOf(start), End: dateOf(end)}
	if r.End.Before(r.Start) {
		return Range{}, fmt.Errorf("%w: %s is before %s", ErrInvalidRange,
			r.End.Format(DateLayout), r.Start.Format(DateLayout))
	}
	return r, nil
}

// Days returns every day in the range, newest first.
func (r Range) Days() []time.Time {
	days := make([]time.Time, 0, r.Len())
	for d := r.End; !d.Before(r.Start); d = d.AddDate(0, 0, -1) {
		days = append(days, d)
	}
	return days
}

// Len returns the number of days in the range.
func (r Range) Len() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Contains reports whether day falls inside the range.
func (r Range) Contains(day time.Time) bool {
	d := dateOf(day)
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r Range) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

// dateOf strips the clock and zone, keeping the calendar date as written.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
