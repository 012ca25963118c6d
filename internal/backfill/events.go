package backfill

import (
	"context"
	"time"
)

// Result summarises one pass.
type Result struct {
	// DaysTotal is the size of the import range.
	DaysTotal int
	// DaysCompleted is how many days in the range are complete after the pass.
	DaysCompleted int
	// DaysImported counts days marked complete during this pass.
	DaysImported int
	// DaysFailed counts days that ended with an error this pass.
	DaysFailed int
	// DaysRemaining counts days in the range still not complete.
	DaysRemaining int
	// PointsWritten counts points accepted by the sink, including points
	// from days that later failed. In a dry run it counts the points that
	// would have been written.
	PointsWritten int
	// ConsecutiveFailures is the network failure counter when the pass ended.
	ConsecutiveFailures int
	// NetworkLost is set when the pass stopped because the device went away.
	NetworkLost bool
	// Interrupted is set when the pass stopped because ctx was cancelled.
	Interrupted bool
}

// PercentComplete returns the share of the range that is complete.
func (r Result) PercentComplete() float64 {
	if r.DaysTotal == 0 {
		return 100
	}
	return float64(r.DaysCompleted) / float64(r.DaysTotal) * 100
}

// DayReport describes a day that was just marked complete.
type DayReport struct {
	Day           time.Time
	Points        int
	QueryDuration time.Duration
	WriteDuration time.Duration
	TotalDuration time.Duration
}

// ProgressReport is a snapshot of range completion after a day.
type ProgressReport struct {
	Completed   int
	Remaining   int
	Total       int
	TotalPoints int
}

// Percent returns Completed as a share of Total.
func (p ProgressReport) Percent() float64 {
	if p.Total == 0 {
		return 100
	}
	return float64(p.Completed) / float64(p.Total) * 100
}

// DayError describes a day that failed and stays eligible for retry.
type DayError struct {
	Day   time.Time
	Class ErrorClass
	Err   error
}

// Telemetry receives engine events. Implementations must not block for long
// and must swallow their own failures; events never affect control flow.
type Telemetry interface {
	Day(ctx context.Context, report DayReport)
	Progress(ctx context.Context, report ProgressReport)
	Error(ctx context.Context, dayErr DayError)
	Pass(ctx context.Context, result Result)
}

// noopTelemetry discards every event.
type noopTelemetry struct{}

func (noopTelemetry) Day(context.Context, DayReport)           {}
func (noopTelemetry) Progress(context.Context, ProgressReport) {}
func (noopTelemetry) Error(context.Context, DayError)          {}
func (noopTelemetry) Pass(context.Context, Result)             {}
