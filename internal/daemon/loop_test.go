package daemon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/healthbridge/internal/backfill"
)

// scriptedProber answers from a fixed sequence and cancels once it runs out.
type scriptedProber struct {
	answers []bool
	calls   int
	cancel  context.CancelFunc
}

func (p *scriptedProber) Probe(context.Context) bool {
	if p.calls >= len(p.answers) {
		p.cancel()
		return false
	}
	a := p.answers[p.calls]
	p.calls++
	return a
}

type scriptedRunner struct {
	results []backfill.Result
	err     error
	calls   int
}

func (r *scriptedRunner) RunPass(context.Context) (backfill.Result, error) {
	if r.err != nil {
		return backfill.Result{}, r.err
	}
	res := backfill.Result{DaysImported: 1}
	if r.calls < len(r.results) {
		res = r.results[r.calls]
	}
	r.calls++
	return res, nil
}

type countingReloader struct {
	loads int
	err   error
}

func (c *countingReloader) Load() error {
	c.loads++
	return c.err
}

type recordedConnectivity struct {
	mu     sync.Mutex
	events []bool
}

func (r *recordedConnectivity) Connectivity(_ context.Context, online bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, online)
}

type fixture struct {
	loop   *Loop
	prober *scriptedProber
	runner *scriptedRunner
	store  *countingReloader
	conn   *recordedConnectivity
	sleeps []time.Duration
	ctx    context.Context
}

func newFixture(t *testing.T, probes []bool, results []backfill.Result) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := &fixture{
		prober: &scriptedProber{answers: probes, cancel: cancel},
		runner: &scriptedRunner{results: results},
		store:  &countingReloader{},
		conn:   &recordedConnectivity{},
		ctx:    ctx,
	}
	f.loop = New(Config{PollInterval: 30 * time.Second}, f.prober, f.runner, f.store)
	f.loop.SetConnectivity(f.conn)
	f.loop.sleep = func(ctx context.Context, d time.Duration) bool {
		f.sleeps = append(f.sleeps, d)
		return ctx.Err() == nil
	}
	return f
}

func TestRun_ConnectivityTransitionsOnly(t *testing.T) {
	f := newFixture(t, []bool{false, false, true, true, false}, nil)

	require.NoError(t, f.loop.Run(f.ctx))

	assert.Equal(t, []bool{true, false}, f.conn.events)
	assert.Equal(t, 2, f.runner.calls)
	assert.Equal(t, 2, f.store.loads, "progress reloaded before each pass")
	assert.Equal(t, StateStopped, f.loop.Status().State)
}

func TestRun_FinishesWhenNothingLeft(t *testing.T) {
	f := newFixture(t, []bool{true, true}, []backfill.Result{
		{DaysImported: 3, DaysTotal: 5, DaysCompleted: 5},
		{DaysImported: 0, DaysTotal: 5, DaysCompleted: 5},
	})

	require.NoError(t, f.loop.Run(f.ctx))

	st := f.loop.Status()
	assert.Equal(t, StateFinished, st.State)
	assert.Equal(t, 2, st.Passes)
	assert.True(t, st.Online)
	assert.Len(t, f.sleeps, 1, "sleep between passes, not after the last")
	assert.NoError(t, f.ctx.Err())
}

func TestRun_FinishesWhenEveryDayFails(t *testing.T) {
	f := newFixture(t, []bool{true}, []backfill.Result{
		{DaysFailed: 4, DaysRemaining: 4, DaysTotal: 4},
	})

	require.NoError(t, f.loop.Run(f.ctx))
	assert.Equal(t, StateFinished, f.loop.Status().State)
}

func TestRun_NetworkLostGoesOfflineAndWaits(t *testing.T) {
	f := newFixture(t, []bool{true, true, true}, []backfill.Result{
		{NetworkLost: true, DaysRemaining: 10},
		{DaysImported: 10},
		{},
	})

	require.NoError(t, f.loop.Run(f.ctx))

	assert.Equal(t, []bool{true, false, true}, f.conn.events)
	assert.Equal(t, 3, f.runner.calls)
	assert.Equal(t, []time.Duration{30 * time.Second, 30 * time.Second}, f.sleeps)
	assert.Equal(t, StateFinished, f.loop.Status().State)
}

func TestRun_NoEventWhileStayingOffline(t *testing.T) {
	f := newFixture(t, []bool{false, false, false}, nil)

	require.NoError(t, f.loop.Run(f.ctx))

	assert.Empty(t, f.conn.events)
	assert.Zero(t, f.runner.calls)
	// The fourth sleep is the one cut short by cancellation.
	assert.Len(t, f.sleeps, 4)
}

func TestRun_InterruptedPassStops(t *testing.T) {
	f := newFixture(t, []bool{true, true}, []backfill.Result{{Interrupted: true, DaysImported: 2}})

	require.NoError(t, f.loop.Run(f.ctx))
	assert.Equal(t, 1, f.runner.calls)
	assert.Equal(t, StateStopped, f.loop.Status().State)
}

func TestRun_PassErrorIsReturned(t *testing.T) {
	f := newFixture(t, []bool{true}, nil)
	f.runner.err = errors.New("saving progress: disk full")

	err := f.loop.Run(f.ctx)
	assert.EqualError(t, err, "saving progress: disk full")
}

func TestRun_ReloadErrorIsReturned(t *testing.T) {
	f := newFixture(t, []bool{true}, nil)
	f.store.err = errors.New("corrupt")

	err := f.loop.Run(f.ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reloading progress")
	assert.Zero(t, f.runner.calls)
}

func TestRun_AlreadyCancelled(t *testing.T) {
	f := newFixture(t, []bool{true}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, f.loop.Run(ctx))
	assert.Zero(t, f.prober.calls)
}

func TestSleepSteps(t *testing.T) {
	l := New(Config{PollInterval: time.Second, SleepStep: 5 * time.Millisecond}, nil, nil, nil)

	start := time.Now()
	assert.True(t, l.sleepSteps(context.Background(), 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)
	start = time.Now()
	assert.False(t, l.sleepSteps(ctx, time.Hour))
	assert.Less(t, time.Since(start), time.Second)
}

func TestNew_Defaults(t *testing.T) {
	l := New(Config{}, nil, nil, nil)
	assert.Equal(t, 30*time.Second, l.cfg.PollInterval)
	assert.Equal(t, DefaultSleepStep, l.cfg.SleepStep)
	assert.Equal(t, StateIdle, l.Status().State)
}
