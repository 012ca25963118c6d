package status

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// gapPreview is how many gap days the text report lists.
const gapPreview = 5

// textWriter remembers the first write error so the report body can stay
// a flat list of lines.
type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) line(label, format string, args ...any) {
	if t.err != nil {
		return
	}
	if label == "" {
		_, t.err = fmt.Fprintf(t.w, format+"\n", args...)
		return
	}
	_, t.err = fmt.Fprintf(t.w, "  %-14s"+format+"\n", append([]any{label + ":"}, args...)...)
}

// WriteText renders the report for a terminal.
func (r Report) WriteText(w io.Writer) error {
	t := &textWriter{w: w}

	t.line("", "Backfill status")
	t.line("Range", "%s .. %s (%s days)", r.RangeStart, r.RangeEnd, humanize.Comma(int64(r.TotalDays)))
	t.line("Progress", "%s/%s days (%.1f%%)",
		humanize.Comma(int64(r.Completed)), humanize.Comma(int64(r.TotalDays)), r.PercentComplete)
	t.line("Remaining", "%s days", humanize.Comma(int64(r.Remaining)))
	t.line("Points", "%s", humanize.Comma(int64(r.TotalPoints)))

	if r.EarliestImported != "" {
		t.line("Imported", "%s through %s", r.EarliestImported, r.LatestImported)
	}
	if r.GapCount > 0 {
		t.line("Gaps", "%d (%s)", r.GapCount, previewGaps(r.Gaps, r.GapCount))
	}
	if r.RateDaysPerDay != nil {
		t.line("Rate", "~%.1f days imported per calendar day", *r.RateDaysPerDay)
	}
	if r.ETADays != nil && r.Remaining > 0 {
		t.line("ETA", "~%s days to complete at current rate", humanize.Comma(int64(*r.ETADays)))
	}
	if r.LastUpdated.IsZero() {
		t.line("Last update", "never")
	} else {
		t.line("Last update", "%s (%s)", r.LastUpdated.UTC().Format(time.RFC3339), r.SinceLastUpdate)
	}

	if j := r.Journal; j != nil {
		t.line("", "Journal")
		t.line("Passes", "%s", humanize.Comma(int64(j.Passes)))
		if j.LastPass != nil {
			res := j.LastPass.Result
			t.line("Last pass", "%s: %d imported, %d failed, %s points",
				humanize.Time(j.LastPass.FinishedAt), res.DaysImported, res.DaysFailed,
				humanize.Comma(int64(res.PointsWritten)))
		}
		t.line("Attempts", "%s imported, %s failed",
			humanize.Comma(int64(j.ImportedAttempts)), humanize.Comma(int64(j.FailedAttempts)))
		if len(j.FailuresByClass) > 0 {
			t.line("Failures", "%s", formatClasses(j.FailuresByClass))
		}
		for _, f := range j.RecentFailures {
			t.line("", "    %s %s: %s", f.Day, f.ErrorClass, f.ErrorMessage)
		}
		if j.LastOnline != nil {
			state := "offline"
			if *j.LastOnline {
				state = "online"
			}
			t.line("Device", "%s since %s", state, humanize.Time(j.LastOnlineAt))
		}
	}

	if d := r.Daemon; d != nil {
		online := "offline"
		if d.Online {
			online = "online"
		}
		t.line("", "Daemon")
		t.line("State", "%s (device %s)", d.State, online)
		t.line("Passes", "%d", d.Passes)
	}

	return t.err
}

func previewGaps(gaps []string, total int) string {
	if len(gaps) <= gapPreview {
		return strings.Join(gaps, ", ")
	}
	return fmt.Sprintf("%s ... (+%d more)", strings.Join(gaps[:gapPreview], ", "), total-gapPreview)
}

func formatClasses(byClass map[string]int) string {
	classes := make([]string, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	parts := make([]string, 0, len(classes))
	for _, c := range classes {
		parts = append(parts, fmt.Sprintf("%s %d", c, byClass[c]))
	}
	return strings.Join(parts, ", ")
}
