package status

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/nerrad567/healthbridge/internal/backfill"
	"github.com/nerrad567/healthbridge/internal/daemon"
	"github.com/nerrad567/healthbridge/internal/journal"
	"github.com/nerrad567/healthbridge/internal/progress"
)

// Report describes how far the import has got.
//
// Day counts only consider days inside the configured range; the progress
// file may hold days from an earlier, wider range.
type Report struct {
	RangeStart      string  `json:"range_start"`
	RangeEnd        string  `json:"range_end"`
	TotalDays       int     `json:"total_days"`
	Completed       int     `json:"completed"`
	Remaining       int     `json:"remaining"`
	PercentComplete float64 `json:"percent_complete"`
	TotalPoints     int     `json:"total_points"`

	EarliestImported string   `json:"earliest_imported,omitempty"`
	LatestImported   string   `json:"latest_imported,omitempty"`
	Gaps             []string `json:"gaps"`
	GapCount         int      `json:"gap_count"`

	LastUpdated     time.Time `json:"last_updated,omitzero"`
	SinceLastUpdate string    `json:"since_last_update,omitempty"`

	// RateDaysPerDay and ETADays are only known once the journal has
	// recorded when importing started.
	RateDaysPerDay *float64 `json:"rate_days_per_day,omitempty"`
	ETADays        *int     `json:"eta_days,omitempty"`

	Journal *journal.Summary `json:"journal,omitempty"`
	Daemon  *DaemonStatus    `json:"daemon,omitempty"`
}

// DaemonStatus is the daemon loop's view, present only when the report is
// served by a running daemon.
type DaemonStatus struct {
	State    string    `json:"state"`
	Online   bool      `json:"online"`
	Passes   int       `json:"passes"`
	LastPass time.Time `json:"last_pass,omitzero"`
}

// Inputs is everything a report is built from. Journal and Daemon are optional.
type Inputs struct {
	Snapshot progress.Snapshot
	Range    backfill.Range
	Now      time.Time
	Journal  *journal.Summary
	Daemon   *daemon.Status
}

// Build computes a report.
func Build(in Inputs) Report {
	r := Report{
		RangeStart:  in.Range.Start.Format(backfill.DateLayout),
		RangeEnd:    in.Range.End.Format(backfill.DateLayout),
		TotalDays:   in.Range.Len(),
		TotalPoints: in.Snapshot.TotalPoints,
		LastUpdated: in.Snapshot.LastUpdated,
		Gaps:        []string{},
		Journal:     in.Journal,
	}

	days := completedInRange(in.Snapshot.Completed, in.Range)
	r.Completed = len(days)
	r.Remaining = r.TotalDays - r.Completed
	if r.TotalDays > 0 {
		r.PercentComplete = round1(float64(r.Completed) / float64(r.TotalDays) * 100)
	}

	if len(days) > 0 {
		r.EarliestImported = days[0].Format(backfill.DateLayout)
		r.LatestImported = days[len(days)-1].Format(backfill.DateLayout)
	}
	if len(days) >= 2 {
		r.Gaps = gaps(days)
		r.GapCount = len(r.Gaps)
	}

	if !r.LastUpdated.IsZero() {
		r.SinceLastUpdate = formatSince(in.Now.Sub(r.LastUpdated))
	}

	if in.Journal != nil && !in.Journal.FirstAttemptAt.IsZero() && !r.LastUpdated.IsZero() && r.Completed > 0 {
		elapsed := calendarDays(in.Journal.FirstAttemptAt, r.LastUpdated)
		rate := round1(float64(r.Completed) / float64(elapsed))
		r.RateDaysPerDay = &rate
		// ETA uses the unrounded rate.
		eta := int(float64(r.Remaining) * float64(elapsed) / float64(r.Completed))
		r.ETADays = &eta
	}

	if in.Daemon != nil {
		r.Daemon = &DaemonStatus{
			State:    string(in.Daemon.State),
			Online:   in.Daemon.Online,
			Passes:   in.Daemon.Passes,
			LastPass: in.Daemon.LastPass,
		}
	}

	return r
}

// completedInRange parses the completed keys that fall inside rng, sorted
// ascending. Keys that are not dates are ignored.
func completedInRange(keys []string, rng backfill.Range) []time.Time {
	days := make([]time.Time, 0, len(keys))
	for _, k := range keys {
		d, err := time.Parse(backfill.DateLayout, k)
		if err != nil || !rng.Contains(d) {
			continue
		}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// gaps lists the days between the first and last of sorted days that are
// missing from it.
func gaps(sorted []time.Time) []string {
	out := []string{}
	for i := 1; i < len(sorted); i++ {
		for d := sorted[i-1].AddDate(0, 0, 1); d.Before(sorted[i]); d = d.AddDate(0, 0, 1) {
			out = append(out, d.Format(backfill.DateLayout))
		}
	}
	return out
}

// calendarDays counts calendar days from a to b, at least 1.
func calendarDays(a, b time.Time) int {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	n := int(to.Sub(from).Hours() / 24)
	return max(n, 1)
}

// formatSince renders an age as "12m ago", "3.5h ago" or "4d ago".
func formatSince(d time.Duration) string {
	d = max(d, 0)
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%.1fh ago", d.Hours())
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
