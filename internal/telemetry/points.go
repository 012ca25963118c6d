package telemetry

import (
	"math"
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/healthbridge/internal/backfill"
)

// Measurement names written to the sink.
const (
	MeasurementDay          = "backfill_day"
	MeasurementProgress     = "backfill_progress"
	MeasurementConnectivity = "backfill_connectivity"
	MeasurementError        = "backfill_error"
	MeasurementPass         = "backfill_pass"
)

// maxErrorMessage caps the message field of backfill_error.
const maxErrorMessage = 200

// DayPoint builds the backfill_day point for an imported day.
func DayPoint(r backfill.DayReport, now time.Time) *write.Point {
	return write.NewPoint(MeasurementDay,
		map[string]string{"date": r.Day.Format(backfill.DateLayout)},
		map[string]any{
			"points":           float64(r.Points),
			"query_duration_s": seconds(r.QueryDuration),
			"write_duration_s": seconds(r.WriteDuration),
			"total_duration_s": seconds(r.TotalDuration),
		},
		now,
	)
}

// ProgressPoint builds the backfill_progress point.
func ProgressPoint(r backfill.ProgressReport, now time.Time) *write.Point {
	return write.NewPoint(MeasurementProgress, nil,
		map[string]any{
			"completed":    float64(r.Completed),
			"remaining":    float64(r.Remaining),
			"pct_complete": round(r.Percent(), 2),
			"total_points": float64(r.TotalPoints),
		},
		now,
	)
}

// ConnectivityPoint builds the backfill_connectivity point.
func ConnectivityPoint(online bool, now time.Time) *write.Point {
	v := 0.0
	if online {
		v = 1
	}
	return write.NewPoint(MeasurementConnectivity, nil, map[string]any{"online": v}, now)
}

// ErrorPoint builds the backfill_error point for a failed day.
func ErrorPoint(e backfill.DayError, now time.Time) *write.Point {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return write.NewPoint(MeasurementError,
		map[string]string{
			"date":       e.Day.Format(backfill.DateLayout),
			"error_type": string(e.Class),
		},
		map[string]any{
			"message": truncate(msg, maxErrorMessage),
			"count":   1.0,
		},
		now,
	)
}

// PassPoint builds the backfill_pass point summarising a pass.
func PassPoint(r backfill.Result, now time.Time) *write.Point {
	return write.NewPoint(MeasurementPass, nil,
		map[string]any{
			"days_imported":  float64(r.DaysImported),
			"days_failed":    float64(r.DaysFailed),
			"days_remaining": float64(r.DaysRemaining),
			"points":         float64(r.PointsWritten),
			"network_lost":   r.NetworkLost,
			"interrupted":    r.Interrupted,
		},
		now,
	)
}

func seconds(d time.Duration) float64 {
	return round(d.Seconds(), 3)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
