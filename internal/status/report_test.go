package status

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/healthbridge/internal/backfill"
	"github.com/nerrad567/healthbridge/internal/daemon"
	"github.com/nerrad567/healthbridge/internal/journal"
	"github.com/nerrad567/healthbridge/internal/progress"
)

func mustRange(t *testing.T, start, end string) backfill.Range {
	t.Helper()
	s, err := time.Parse(backfill.DateLayout, start)
	require.NoError(t, err)
	e, err := time.Parse(backfill.DateLayout, end)
	require.NoError(t, err)
	rng, err := backfill.NewRange(s, e)
	require.NoError(t, err)
	return rng
}

var lastUpdated = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func sampleSnapshot() progress.Snapshot {
	return progress.Snapshot{
		Completed:   []string{"2023-12-31", "2024-01-02", "2024-01-03", "2024-01-05", "2024-01-09"},
		TotalPoints: 1234567,
		LastUpdated: lastUpdated,
	}
}

func TestBuild_Counts(t *testing.T) {
	r := Build(Inputs{
		Snapshot: sampleSnapshot(),
		Range:    mustRange(t, "2024-01-01", "2024-01-10"),
		Now:      lastUpdated.Add(90 * time.Minute),
	})

	assert.Equal(t, "2024-01-01", r.RangeStart)
	assert.Equal(t, "2024-01-10", r.RangeEnd)
	assert.Equal(t, 10, r.TotalDays)
	assert.Equal(t, 4, r.Completed, "days outside the range are not counted")
	assert.Equal(t, 6, r.Remaining)
	assert.InDelta(t, 40.0, r.PercentComplete, 0.001)
	assert.Equal(t, 1234567, r.TotalPoints)
	assert.Equal(t, "2024-01-02", r.EarliestImported)
	assert.Equal(t, "2024-01-09", r.LatestImported)
	assert.Equal(t, []string{"2024-01-04", "2024-01-06", "2024-01-07", "2024-01-08"}, r.Gaps)
	assert.Equal(t, 4, r.GapCount)
	assert.Equal(t, "1.5h ago", r.SinceLastUpdate)
	assert.Nil(t, r.RateDaysPerDay, "no rate without a journal")
	assert.Nil(t, r.ETADays)
	assert.Nil(t, r.Daemon)
}

func TestBuild_PercentRoundedToOneDecimal(t *testing.T) {
	r := Build(Inputs{
		Snapshot: progress.Snapshot{Completed: []string{"2024-01-01"}},
		Range:    mustRange(t, "2024-01-01", "2024-01-03"),
		Now:      lastUpdated,
	})
	assert.InDelta(t, 33.3, r.PercentComplete, 0.0001)
}

func TestBuild_Empty(t *testing.T) {
	r := Build(Inputs{
		Range: mustRange(t, "2024-01-01", "2024-01-03"),
		Now:   lastUpdated,
	})

	assert.Equal(t, 0, r.Completed)
	assert.Equal(t, 3, r.Remaining)
	assert.Empty(t, r.EarliestImported)
	assert.NotNil(t, r.Gaps)
	assert.Empty(t, r.Gaps)
	assert.Empty(t, r.SinceLastUpdate)
}

func TestBuild_SingleDayHasNoGaps(t *testing.T) {
	r := Build(Inputs{
		Snapshot: progress.Snapshot{Completed: []string{"2024-01-02"}, LastUpdated: lastUpdated},
		Range:    mustRange(t, "2024-01-01", "2024-01-03"),
		Now:      lastUpdated,
	})
	assert.Equal(t, "2024-01-02", r.EarliestImported)
	assert.Equal(t, "2024-01-02", r.LatestImported)
	assert.Equal(t, 0, r.GapCount)
}

func TestBuild_RateAndETAFromJournal(t *testing.T) {
	summary := &journal.Summary{
		Passes:         3,
		FirstAttemptAt: time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC),
	}

	r := Build(Inputs{
		Snapshot: sampleSnapshot(),
		Range:    mustRange(t, "2024-01-01", "2024-01-10"),
		Now:      lastUpdated,
		Journal:  summary,
	})

	require.NotNil(t, r.RateDaysPerDay)
	assert.InDelta(t, 2.0, *r.RateDaysPerDay, 0.001)
	require.NotNil(t, r.ETADays)
	assert.Equal(t, 3, *r.ETADays)
	assert.Same(t, summary, r.Journal)
}

func TestBuild_RateSameDayCountsAsOne(t *testing.T) {
	r := Build(Inputs{
		Snapshot: sampleSnapshot(),
		Range:    mustRange(t, "2024-01-01", "2024-01-10"),
		Now:      lastUpdated,
		Journal:  &journal.Summary{FirstAttemptAt: lastUpdated.Add(-time.Hour)},
	})

	require.NotNil(t, r.RateDaysPerDay)
	assert.InDelta(t, 4.0, *r.RateDaysPerDay, 0.001)
}

func TestBuild_SlowRateKeepsETA(t *testing.T) {
	// 4 days in 100 calendar days rounds to a displayed rate of 0.0.
	r := Build(Inputs{
		Snapshot: sampleSnapshot(),
		Range:    mustRange(t, "2024-01-01", "2024-01-10"),
		Now:      lastUpdated,
		Journal:  &journal.Summary{FirstAttemptAt: time.Date(2023, 10, 2, 8, 0, 0, 0, time.UTC)},
	})

	require.NotNil(t, r.RateDaysPerDay)
	assert.InDelta(t, 0.0, *r.RateDaysPerDay, 0.001)
	require.NotNil(t, r.ETADays)
	assert.Equal(t, 150, *r.ETADays)
}

func TestBuild_Daemon(t *testing.T) {
	last := lastUpdated.Add(-time.Minute)
	r := Build(Inputs{
		Range: mustRange(t, "2024-01-01", "2024-01-03"),
		Now:   lastUpdated,
		Daemon: &daemon.Status{
			State:    daemon.StateSleeping,
			Online:   true,
			Passes:   2,
			LastPass: last,
		},
	})

	require.NotNil(t, r.Daemon)
	assert.Equal(t, DaemonStatus{State: "sleeping", Online: true, Passes: 2, LastPass: last}, *r.Daemon)
}

func TestFormatSince(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0m ago"},
		{-time.Minute, "0m ago"},
		{59 * time.Minute, "59m ago"},
		{90 * time.Minute, "1.5h ago"},
		{23 * time.Hour, "23.0h ago"},
		{49 * time.Hour, "2d ago"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatSince(tt.in))
		})
	}
}

func TestWriteText(t *testing.T) {
	rate := 2.0
	eta := 3
	online := true
	r := Build(Inputs{
		Snapshot: sampleSnapshot(),
		Range:    mustRange(t, "2024-01-01", "2024-01-10"),
		Now:      lastUpdated.Add(5 * time.Minute),
	})
	r.RateDaysPerDay = &rate
	r.ETADays = &eta
	r.Journal = &journal.Summary{
		Passes:           3,
		ImportedAttempts: 4,
		FailedAttempts:   2,
		FailuresByClass:  map[string]int{"transport": 1, "protocol": 1},
		RecentFailures: []journal.DayAttempt{
			{Day: "2024-01-04", ErrorClass: "protocol", ErrorMessage: "device error: nope"},
		},
		LastOnline:   &online,
		LastOnlineAt: time.Now().Add(-time.Hour),
	}

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))
	out := buf.String()

	assert.Contains(t, out, "Backfill status\n")
	assert.Contains(t, out, "  Progress:     4/10 days (40.0%)\n")
	assert.Contains(t, out, "  Remaining:    6 days\n")
	assert.Contains(t, out, "  Points:       1,234,567\n")
	assert.Contains(t, out, "  Imported:     2024-01-02 through 2024-01-09\n")
	assert.Contains(t, out, "  Gaps:         4 (2024-01-04, 2024-01-06, 2024-01-07, 2024-01-08)\n")
	assert.Contains(t, out, "  Rate:         ~2.0 days imported per calendar day\n")
	assert.Contains(t, out, "  ETA:          ~3 days to complete at current rate\n")
	assert.Contains(t, out, "  Last update:  2024-01-10T12:00:00Z (5m ago)\n")
	assert.Contains(t, out, "  Failures:     protocol 1, transport 1\n")
	assert.Contains(t, out, "    2024-01-04 protocol: device error: nope\n")
	assert.Contains(t, out, "  Device:       online since 1 hour ago\n")
	assert.NotContains(t, out, "Daemon")
}

func TestWriteText_NeverUpdated(t *testing.T) {
	r := Build(Inputs{Range: mustRange(t, "2024-01-01", "2024-01-03"), Now: lastUpdated})

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))
	assert.Contains(t, buf.String(), "  Last update:  never\n")
	assert.NotContains(t, buf.String(), "Gaps:")
}

func TestPreviewGaps(t *testing.T) {
	gaps := []string{"a", "b", "c", "d", "e", "f", "g"}
	assert.Equal(t, "a, b, c, d, e ... (+2 more)", previewGaps(gaps, len(gaps)))
	assert.Equal(t, "a, b", previewGaps(gaps[:2], 2))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteText_ReturnsWriteError(t *testing.T) {
	r := Build(Inputs{Range: mustRange(t, "2024-01-01", "2024-01-03"), Now: lastUpdated})
	assert.EqualError(t, r.WriteText(failingWriter{}), "disk full")
}

type fakeSnapshotter struct{ snap progress.Snapshot }

func (f fakeSnapshotter) Snapshot() progress.Snapshot { return f.snap }

type fakeJournal struct {
	summary journal.Summary
	err     error
}

func (f fakeJournal) Summary(context.Context) (journal.Summary, error) { return f.summary, f.err }

type fakeDaemon struct{ st daemon.Status }

func (f fakeDaemon) Status() daemon.Status { return f.st }

func TestProvider_Report(t *testing.T) {
	p := NewProvider(fakeSnapshotter{snap: sampleSnapshot()}, mustRange(t, "2024-01-01", "2024-01-10"))
	p.now = func() time.Time { return lastUpdated }
	p.SetJournal(fakeJournal{summary: journal.Summary{Passes: 7}})
	p.SetDaemon(fakeDaemon{st: daemon.Status{State: daemon.StateRunning, Online: true}})

	r, err := p.Report(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, r.Completed)
	require.NotNil(t, r.Journal)
	assert.Equal(t, 7, r.Journal.Passes)
	require.NotNil(t, r.Daemon)
	assert.Equal(t, "running", r.Daemon.State)
	assert.Equal(t, "0m ago", r.SinceLastUpdate)
}

func TestProvider_JournalError(t *testing.T) {
	p := NewProvider(fakeSnapshotter{}, mustRange(t, "2024-01-01", "2024-01-10"))
	p.SetJournal(fakeJournal{err: errors.New("database is locked")})

	_, err := p.Report(context.Background())
	assert.ErrorContains(t, err, "reading journal: database is locked")
}
