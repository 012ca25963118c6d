package backfill

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/healthbridge/internal/remote"
)

func TestNewRange(t *testing.T) {
	r, err := NewRange(
		time.Date(2024, 1, 1, 23, 30, 0, 0, time.FixedZone("", 3600)),
		time.Date(2024, 1, 3, 1, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01..2024-01-03", r.String())
	assert.Equal(t, 3, r.Len())

	_, err = NewRange(mustDay("2024-01-02"), mustDay("2024-01-01"))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestRange_DaysNewestFirst(t *testing.T) {
	r := mustRange(t, "2024-02-27", "2024-03-01")

	var got []string
	for _, d := range r.Days() {
		got = append(got, d.Format(DateLayout))
	}
	assert.Equal(t, []string{"2024-03-01", "2024-02-29", "2024-02-28", "2024-02-27"}, got)
	assert.Equal(t, len(got), r.Len())
}

func TestRange_SingleDay(t *testing.T) {
	r := mustRange(t, "2024-05-05", "2024-05-05")
	assert.Equal(t, 1, r.Len())
	assert.Len(t, r.Days(), 1)
}

func TestRange_Contains(t *testing.T) {
	r := mustRange(t, "2024-01-10", "2024-01-20")

	assert.True(t, r.Contains(mustDay("2024-01-10")))
	assert.True(t, r.Contains(time.Date(2024, 1, 20, 23, 59, 0, 0, time.UTC)))
	assert.False(t, r.Contains(mustDay("2024-01-09")))
	assert.False(t, r.Contains(mustDay("2024-01-21")))
}

func TestDayWindows(t *testing.T) {
	loc := time.FixedZone("+0530", 5*3600+30*60)
	windows := DayWindows(mustDay("2024-06-15"), loc)

	labels := make([]string, 0, len(windows))
	for i, w := range windows {
		assert.Equal(t, i, w.Index)
		assert.Equal(t, "2024-06-15", w.Day.Format(DateLayout))
		assert.Equal(t, loc, w.Start.Location())
		assert.Equal(t, 6*time.Hour-time.Second, w.End.Sub(w.Start))
		labels = append(labels, w.Label())
	}
	assert.Equal(t, []string{"00:00-05:59", "06:00-11:59", "12:00-17:59", "18:00-23:59"}, labels)

	assert.Equal(t, "2024-06-15 00:00:00 +0530", windows[0].Start.Format(remote.TimestampLayout))
	assert.Equal(t, "2024-06-15 23:59:59 +0530", windows[3].End.Format(remote.TimestampLayout))
}

func TestParseOffset(t *testing.T) {
	tests := []struct {
		offset  string
		seconds int
		wantErr bool
	}{
		{offset: "+0000", seconds: 0},
		{offset: "-0500", seconds: -5 * 3600},
		{offset: "+0545", seconds: 5*3600 + 45*60},
		{offset: "+1400", seconds: 14 * 3600},
		{offset: "0500", wantErr: true},
		{offset: "+5", wantErr: true},
		{offset: "+05:00", wantErr: true},
		{offset: "+1500", wantErr: true},
		{offset: "+0060", wantErr: true},
		{offset: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.offset, func(t *testing.T) {
			loc, err := ParseOffset(tt.offset)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidOffset)
				return
			}
			require.NoError(t, err)
			_, got := time.Date(2024, 1, 1, 0, 0, 0, 0, loc).Zone()
			assert.Equal(t, tt.seconds, got)
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"transport", fmt.Errorf("window 00:00-05:59: %w", transportErr(3)), ErrorClassTransport},
		{"protocol", fmt.Errorf("window 00:00-05:59: %w", &remote.ProtocolError{Message: "x"}), ErrorClassProtocol},
		{"sink", fmt.Errorf("%w: boom", ErrSinkWrite), ErrorClassSink},
		{"other", errors.New("something else"), ErrorClassUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestResult_PercentComplete(t *testing.T) {
	assert.Equal(t, 100.0, Result{}.PercentComplete())
	assert.Equal(t, 25.0, Result{DaysTotal: 4, DaysCompleted: 1}.PercentComplete())
}
