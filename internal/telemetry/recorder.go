package telemetry

import (
	"context"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/healthbridge/internal/backfill"
	"github.com/nerrad567/healthbridge/internal/infrastructure/mqtt"
)

// PointWriter receives telemetry points. Both sink clients satisfy it.
type PointWriter interface {
	WritePoints(ctx context.Context, points ...*write.Point) error
}

// Publisher sends JSON status messages. *mqtt.Client satisfies it.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// Journal stores the event history. *journal.SQLiteRepository satisfies it.
type Journal interface {
	RecordDay(ctx context.Context, report backfill.DayReport) error
	RecordFailure(ctx context.Context, dayErr backfill.DayError) error
	RecordPass(ctx context.Context, result backfill.Result) error
	RecordConnectivity(ctx context.Context, online bool) error
}

// Logger defines the logging interface for the recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder fans engine and daemon events out to the sink, an MQTT broker
// and the run journal. Every destination is optional. Failures are logged
// at warn and never returned.
type Recorder struct {
	points    PointWriter
	publisher Publisher
	journal   Journal
	logger    Logger
	now       func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithPoints writes telemetry points to w.
func WithPoints(w PointWriter) Option {
	return func(r *Recorder) { r.points = w }
}

// WithPublisher publishes status messages through p.
func WithPublisher(p Publisher) Option {
	return func(r *Recorder) { r.publisher = p }
}

// WithJournal records events in j.
func WithJournal(j Journal) Option {
	return func(r *Recorder) { r.journal = j }
}

// WithLogger sets the logger for delivery failures.
func WithLogger(l Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a recorder.
func New(opts ...Option) *Recorder {
	r := &Recorder{
		logger: noopLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Day reports an imported day.
func (r *Recorder) Day(ctx context.Context, report backfill.DayReport) {
	now := r.now()
	r.write(ctx, MeasurementDay, DayPoint(report, now))
	r.publish(mqtt.Topics{}.BackfillDay(), dayMessage{
		Date:           report.Day.Format(backfill.DateLayout),
		Points:         report.Points,
		QueryDurationS: seconds(report.QueryDuration),
		WriteDurationS: seconds(report.WriteDuration),
		TotalDurationS: seconds(report.TotalDuration),
		Timestamp:      now.UTC(),
	}, false)
	if r.journal != nil {
		r.logFailure("journal", MeasurementDay, r.journal.RecordDay(ctx, report))
	}
}

// Progress reports range completion.
func (r *Recorder) Progress(ctx context.Context, report backfill.ProgressReport) {
	now := r.now()
	r.write(ctx, MeasurementProgress, ProgressPoint(report, now))
	r.publish(mqtt.Topics{}.BackfillProgress(), progressMessage{
		Completed:   report.Completed,
		Remaining:   report.Remaining,
		Total:       report.Total,
		PctComplete: round(report.Percent(), 2),
		TotalPoints: report.TotalPoints,
		Timestamp:   now.UTC(),
	}, true)
}

// Error reports a failed day.
func (r *Recorder) Error(ctx context.Context, dayErr backfill.DayError) {
	now := r.now()
	r.write(ctx, MeasurementError, ErrorPoint(dayErr, now))

	msg := ""
	if dayErr.Err != nil {
		msg = truncate(dayErr.Err.Error(), maxErrorMessage)
	}
	r.publish(mqtt.Topics{}.BackfillError(), errorMessage{
		Date:      dayErr.Day.Format(backfill.DateLayout),
		ErrorType: string(dayErr.Class),
		Message:   msg,
		Timestamp: now.UTC(),
	}, false)
	if r.journal != nil {
		r.logFailure("journal", MeasurementError, r.journal.RecordFailure(ctx, dayErr))
	}
}

// Pass reports the end of a pass.
func (r *Recorder) Pass(ctx context.Context, result backfill.Result) {
	now := r.now()
	r.write(ctx, MeasurementPass, PassPoint(result, now))
	r.publish(mqtt.Topics{}.BackfillPass(), passMessage{
		DaysImported:  result.DaysImported,
		DaysFailed:    result.DaysFailed,
		DaysRemaining: result.DaysRemaining,
		Points:        result.PointsWritten,
		NetworkLost:   result.NetworkLost,
		Interrupted:   result.Interrupted,
		Timestamp:     now.UTC(),
	}, false)
	if r.journal != nil {
		r.logFailure("journal", MeasurementPass, r.journal.RecordPass(ctx, result))
	}
}

// Connectivity reports a device reachability change.
func (r *Recorder) Connectivity(ctx context.Context, online bool) {
	now := r.now()
	r.write(ctx, MeasurementConnectivity, ConnectivityPoint(online, now))
	r.publish(mqtt.Topics{}.BackfillConnectivity(), connectivityMessage{
		Online:    online,
		Timestamp: now.UTC(),
	}, true)
	if r.journal != nil {
		r.logFailure("journal", MeasurementConnectivity, r.journal.RecordConnectivity(ctx, online))
	}
}

func (r *Recorder) write(ctx context.Context, event string, p *write.Point) {
	if r.points == nil {
		return
	}
	r.logFailure("sink", event, r.points.WritePoints(ctx, p))
}

func (r *Recorder) publish(topic string, msg any, retained bool) {
	if r.publisher == nil {
		return
	}
	r.logFailure("mqtt", topic, r.publisher.PublishJSON(topic, msg, retained))
}

func (r *Recorder) logFailure(dest, event string, err error) {
	if err != nil {
		r.logger.Warn("failed to deliver telemetry", "destination", dest, "event", event, "error", err)
	}
}
