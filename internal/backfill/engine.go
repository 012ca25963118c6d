package backfill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/healthbridge/internal/lineproto"
	"github.com/nerrad567/healthbridge/internal/remote"
)

// NetworkLossThreshold is the number of consecutive transport failures,
// with no successful window in between, after which the device is
// considered gone and the pass ends.
const NetworkLossThreshold = 3

// Querier fetches device metrics for one window.
type Querier interface {
	Query(ctx context.Context, w remote.Window) ([]remote.Metric, error)
}

// Sink durably stores points. WritePoints must not return until the
// points are accepted or rejected.
type Sink interface {
	WritePoints(ctx context.Context, points ...*write.Point) error
}

// Progress is the durable record of completed days.
type Progress interface {
	IsCompleted(day time.Time) bool
	MarkCompleted(day time.Time, points int)
	TotalPoints() int
	SaveIfDirty() error
}

// Logger defines the logging interface for the engine.
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

// Config holds the immutable settings of an engine.
type Config struct {
	Range Range

	// Location is the zone query windows are built in.
	Location *time.Location

	// RequestDelay throttles the device between days.
	RequestDelay time.Duration

	// DryRun queries and encodes but never writes points or telemetry.
	DryRun bool
}

// Engine imports days from the device into the sink, newest first,
// recording each fully imported day in the progress store.
//
// An Engine runs one pass at a time; it is not safe for concurrent RunPass calls.
type Engine struct {
	cfg       Config
	client    Querier
	sink      Sink
	store     Progress
	telemetry Telemetry
	logger    Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool
}

// NewEngine creates an engine. sink may be nil only for a dry run.
func NewEngine(cfg Config, client Querier, sink Sink, store Progress) (*Engine, error) {
	if sink == nil && !cfg.DryRun {
		return nil, ErrNoSink
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	return &Engine{
		cfg:       cfg,
		client:    client,
		sink:      sink,
		store:     store,
		telemetry: noopTelemetry{},
		logger:    noopLogger{},
		now:       time.Now,
		sleep:     sleepContext,
	}, nil
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	e.logger = logger
}

// SetTelemetry sets the event receiver. It is ignored in a dry run.
func (e *Engine) SetTelemetry(t Telemetry) {
	if t == nil || e.cfg.DryRun {
		return
	}
	e.telemetry = t
}

// Range returns the import range.
func (e *Engine) Range() Range {
	return e.cfg.Range
}

// RunPass imports every day in the range that is not yet complete.
//
// Days are visited newest first. Each day is queried window by window and
// the points of each window are written as soon as they arrive; the day is
// marked complete only after all four windows succeed. A failed day is
// reported and left for a later pass. The pass ends early when
// NetworkLossThreshold consecutive transport failures occur, or when ctx is
// cancelled; cancellation is observed between windows and between days and
// never interrupts an in-flight query or write.
//
// Progress is saved after every day and on every exit path. The only error
// returned is a failure to persist progress.
func (e *Engine) RunPass(ctx context.Context) (res Result, err error) {
	days := e.cfg.Range.Days()
	remaining := make([]time.Time, 0, len(days))
	for _, day := range days {
		if !e.store.IsCompleted(day) {
			remaining = append(remaining, day)
		}
	}

	res.DaysTotal = len(days)
	res.DaysCompleted = len(days) - len(remaining)
	res.DaysRemaining = len(remaining)

	e.logger.Info("backfill pass starting",
		"range", e.cfg.Range.String(),
		"days_total", res.DaysTotal,
		"days_completed", res.DaysCompleted,
		"days_remaining", res.DaysRemaining,
		"dry_run", e.cfg.DryRun,
	)

	if len(remaining) == 0 {
		e.logger.Info("all days already imported")
		return res, nil
	}

	// Events must still go out while shutting down.
	evCtx := context.WithoutCancel(ctx)

	defer func() {
		if saveErr := e.store.SaveIfDirty(); saveErr != nil && err == nil {
			err = fmt.Errorf("saving progress: %w", saveErr)
		}
		if err == nil {
			e.telemetry.Pass(evCtx, res)
		}
	}()

	consecutive := 0
	for i, day := range remaining {
		if ctx.Err() != nil {
			res.Interrupted = true
			break
		}

		out := e.importDay(ctx, day, &consecutive)
		res.ConsecutiveFailures = consecutive
		res.PointsWritten += out.points

		switch {
		case out.interrupted:
			res.Interrupted = true
			e.logger.Info("day interrupted, will retry", "date", day.Format(DateLayout), "points_written", out.points)

		case out.err != nil:
			res.DaysFailed++
			class := Classify(out.err)
			e.logger.Warn("day failed",
				"date", day.Format(DateLayout),
				"error_type", string(class),
				"consecutive_failures", consecutive,
				"error", out.err,
			)
			e.telemetry.Error(evCtx, DayError{Day: day, Class: class, Err: out.err})

		default:
			e.store.MarkCompleted(day, out.points)
			res.DaysImported++
			res.DaysCompleted++
			res.DaysRemaining--

			total := out.elapsed
			e.logger.Info("day imported",
				"date", day.Format(DateLayout),
				"points", out.points,
				"remaining", len(remaining)-i-1,
				"query_duration", out.queryDuration.Round(time.Millisecond),
				"write_duration", out.writeDuration.Round(time.Millisecond),
				"total_duration", total.Round(time.Millisecond),
			)
			e.telemetry.Day(evCtx, DayReport{
				Day:           day,
				Points:        out.points,
				QueryDuration: out.queryDuration,
				WriteDuration: out.writeDuration,
				TotalDuration: total,
			})
			e.telemetry.Progress(evCtx, ProgressReport{
				Completed:   res.DaysCompleted,
				Remaining:   res.DaysRemaining,
				Total:       res.DaysTotal,
				TotalPoints: e.store.TotalPoints(),
			})
		}

		if saveErr := e.store.SaveIfDirty(); saveErr != nil {
			return res, fmt.Errorf("saving progress: %w", saveErr)
		}

		if res.Interrupted {
			break
		}

		if consecutive >= NetworkLossThreshold {
			res.NetworkLost = true
			e.logger.Warn("device unreachable, ending pass",
				"consecutive_failures", consecutive,
				"date", day.Format(DateLayout),
			)
			break
		}

		if i < len(remaining)-1 && e.cfg.RequestDelay > 0 {
			if !e.sleep(ctx, e.cfg.RequestDelay) {
				res.Interrupted = true
				break
			}
		}
	}

	e.logger.Info("backfill pass complete",
		"days_imported", res.DaysImported,
		"days_failed", res.DaysFailed,
		"days_remaining", res.DaysRemaining,
		"points", res.PointsWritten,
		"network_lost", res.NetworkLost,
		"interrupted", res.Interrupted,
	)

	return res, nil
}

// dayOutcome is what importDay learned about one day.
type dayOutcome struct {
	points        int
	queryDuration time.Duration
	writeDuration time.Duration
	elapsed       time.Duration
	err           error
	interrupted   bool
}

// importDay queries and writes the four windows of day in order.
// consecutive is the pass-wide network failure counter.
func (e *Engine) importDay(ctx context.Context, day time.Time, consecutive *int) (out dayOutcome) {
	start := e.now()
	defer func() { out.elapsed = e.now().Sub(start) }()

	for _, w := range DayWindows(day, e.cfg.Location) {
		if ctx.Err() != nil {
			out.interrupted = true
			return out
		}

		t0 := e.now()
		metrics, err := e.client.Query(ctx, w.Window)
		out.queryDuration += e.now().Sub(t0)

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				out.interrupted = true
				return out
			}
			var terr *remote.TransportError
			switch {
			case errors.As(err, &terr):
				*consecutive += max(terr.Attempts, 1)
			case errors.Is(err, remote.ErrTransport):
				*consecutive++
			}
			out.err = fmt.Errorf("window %s: %w", w.Label(), err)
			return out
		}

		// The device answered, so it is reachable regardless of what follows.
		*consecutive = 0

		points, stats := lineproto.Encode(metrics)
		if stats.BadTimestamp > 0 {
			e.logger.Debug("dropped samples with unusable timestamps",
				"date", day.Format(DateLayout),
				"window", w.Label(),
				"samples", stats.BadTimestamp,
			)
		}

		if len(points) > 0 && !e.cfg.DryRun {
			t0 = e.now()
			err := e.sink.WritePoints(context.WithoutCancel(ctx), points...)
			out.writeDuration += e.now().Sub(t0)
			if err != nil {
				out.err = fmt.Errorf("%w: window %s: %w", ErrSinkWrite, w.Label(), err)
				return out
			}
		}
		out.points += len(points)

		e.logger.Debug("window imported",
			"date", day.Format(DateLayout),
			"window", w.Label(),
			"points", len(points),
		)
	}

	return out
}

// sleepContext waits for d or until ctx is done. It reports whether the
// full duration elapsed.
func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
