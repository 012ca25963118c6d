package daemon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/healthbridge/internal/backfill"
)

// State is the phase the loop is currently in.
type State string

const (
	StateIdle     State = "idle"
	StateChecking State = "checking"
	StateRunning  State = "running"
	StateSleeping State = "sleeping"
	StateFinished State = "finished"
	StateStopped  State = "stopped"
)

// DefaultSleepStep is the granularity of the poll sleep.
const DefaultSleepStep = time.Second

// Prober checks whether the device accepts connections.
type Prober interface {
	Probe(ctx context.Context) bool
}

// Runner runs one backfill pass.
type Runner interface {
	RunPass(ctx context.Context) (backfill.Result, error)
}

// Reloader re-reads durable progress before a pass.
type Reloader interface {
	Load() error
}

// Connectivity receives device reachability transitions.
type Connectivity interface {
	Connectivity(ctx context.Context, online bool)
}

// Logger defines the logging interface for the loop.
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

type noopConnectivity struct{}

func (noopConnectivity) Connectivity(context.Context, bool) {}

// Config holds loop timing.
type Config struct {
	// PollInterval is how long to wait between probes and passes.
	PollInterval time.Duration

	// SleepStep is how often a sleep checks for cancellation.
	SleepStep time.Duration
}

// Status is a point-in-time view of the loop.
type Status struct {
	State      State
	Online     bool
	Passes     int
	LastPass   time.Time
	LastResult backfill.Result
}

// Loop probes the device and runs backfill passes whenever it is reachable,
// until the range is complete or the context is cancelled.
type Loop struct {
	cfg          Config
	prober       Prober
	runner       Runner
	progress     Reloader
	connectivity Connectivity
	logger       Logger

	sleep func(ctx context.Context, d time.Duration) bool
	now   func() time.Time

	mu         sync.RWMutex
	state      State
	online     bool
	passes     int
	lastPass   time.Time
	lastResult backfill.Result
}

// New creates a loop. Zero timing values fall back to a 30s poll interval
// and a 1s sleep step.
func New(cfg Config, prober Prober, runner Runner, progress Reloader) *Loop {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.SleepStep <= 0 {
		cfg.SleepStep = DefaultSleepStep
	}

	l := &Loop{
		cfg:          cfg,
		prober:       prober,
		runner:       runner,
		progress:     progress,
		connectivity: noopConnectivity{},
		logger:       noopLogger{},
		now:          time.Now,
		state:        StateIdle,
	}
	l.sleep = l.sleepSteps
	return l
}

// SetLogger sets the logger for the loop.
func (l *Loop) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	l.logger = logger
}

// SetConnectivity sets the receiver of online/offline transitions.
func (l *Loop) SetConnectivity(c Connectivity) {
	if c == nil {
		c = noopConnectivity{}
	}
	l.connectivity = c
}

// Status returns a snapshot of the loop's state.
func (l *Loop) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Status{
		State:      l.state,
		Online:     l.online,
		Passes:     l.passes,
		LastPass:   l.lastPass,
		LastResult: l.lastResult,
	}
}

// Run drives the loop. It returns nil when the range is complete or ctx is
// cancelled, and an error only when progress cannot be loaded or saved.
//
// The device starts out offline; a connectivity event is sent on every
// change, and a pass that ends in network loss counts as going offline.
func (l *Loop) Run(ctx context.Context) (err error) {
	l.logger.Info("daemon started", "poll_interval", l.cfg.PollInterval)

	defer func() {
		if l.Status().State != StateFinished {
			l.setState(StateStopped)
		}
		l.logger.Info("daemon stopped", "state", string(l.Status().State), "error", err)
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		l.setState(StateChecking)
		if !l.prober.Probe(ctx) {
			l.setOnline(ctx, false)
			l.logger.Debug("device unreachable, waiting", "retry_in", l.cfg.PollInterval)
			if !l.wait(ctx) {
				return nil
			}
			continue
		}
		l.setOnline(ctx, true)

		if err := l.progress.Load(); err != nil {
			return fmt.Errorf("reloading progress: %w", err)
		}

		l.setState(StateRunning)
		res, err := l.runner.RunPass(ctx)
		if err != nil {
			return err
		}
		l.recordPass(res)

		switch {
		case res.Interrupted:
			return nil

		case res.NetworkLost:
			l.setOnline(ctx, false)
			l.logger.Warn("device went away during pass, waiting",
				"retry_in", l.cfg.PollInterval,
				"days_remaining", res.DaysRemaining,
			)

		case res.DaysImported == 0:
			if res.DaysFailed > 0 {
				l.logger.Warn("no days could be imported, stopping",
					"days_failed", res.DaysFailed,
					"days_remaining", res.DaysRemaining,
				)
			} else {
				l.logger.Info("backfill complete",
					"days_total", res.DaysTotal,
					"days_completed", res.DaysCompleted,
				)
			}
			l.setState(StateFinished)
			return nil
		}

		if !l.wait(ctx) {
			return nil
		}
	}
}

func (l *Loop) wait(ctx context.Context) bool {
	l.setState(StateSleeping)
	return l.sleep(ctx, l.cfg.PollInterval)
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// setOnline records reachability and reports it only when it changed.
func (l *Loop) setOnline(ctx context.Context, online bool) {
	l.mu.Lock()
	changed := l.online != online
	l.online = online
	l.mu.Unlock()

	if !changed {
		return
	}
	l.logger.Info("device connectivity changed", "online", online)
	l.connectivity.Connectivity(context.WithoutCancel(ctx), online)
}

func (l *Loop) recordPass(res backfill.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.passes++
	l.lastPass = l.now()
	l.lastResult = res
}

// sleepSteps sleeps for d in SleepStep increments so cancellation is seen
// promptly. It reports whether the full duration elapsed.
func (l *Loop) sleepSteps(ctx context.Context, d time.Duration) bool {
	for d > 0 {
		step := min(l.cfg.SleepStep, d)
		t := time.NewTimer(step)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
		d -= step
	}
	return ctx.Err() == nil
}
