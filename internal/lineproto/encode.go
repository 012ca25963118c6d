package lineproto

import (
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/healthbridge/internal/remote"
)

// sampleTimeLayout is the device's native timestamp format.
const sampleTimeLayout = "2006-01-02 15:04:05 -0700"

// fallbackLayouts are tried when a timestamp is not in the native format.
var fallbackLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// skipKeys are sample members that are never fields or tags.
var skipKeys = map[string]bool{
	"date":      true,
	"source":    true,
	"startDate": true,
}

// stringKeys become tags when their value is a string and are otherwise dropped.
var stringKeys = map[string]bool{
	"inBedStart": true,
	"inBedEnd":   true,
	"sleepStart": true,
	"sleepEnd":   true,
	"value":      true,
	"endDate":    true,
	"start":      true,
	"end":        true,
	"context":    true,
}

// Stats describes what Encode did with the samples it was given.
type Stats struct {
	// Samples is the number of samples inspected.
	Samples int
	// BadTimestamp counts samples dropped for a missing or unparseable date.
	BadTimestamp int
	// NoFields counts samples dropped because they had no numeric member.
	NoFields int
}

// Encode converts device metrics into write points.
//
// Each sample becomes one point in a measurement named after its metric,
// timestamped to the second from "date" (or "startDate"). Numeric members
// become float fields with lowercased keys; "source" and the metric's units
// become tags, as do the known string members. Samples without a usable
// timestamp or without any numeric member are dropped.
func Encode(metrics []remote.Metric) ([]*write.Point, Stats) {
	var points []*write.Point
	var stats Stats

	for _, m := range metrics {
		name := m.Name
		if name == "" {
			name = "unknown"
		}

		for _, sample := range m.Data {
			stats.Samples++

			ts, ok := sampleTime(sample)
			if !ok {
				stats.BadTimestamp++
				continue
			}

			p := write.NewPointWithMeasurement(name).SetTime(ts.Truncate(time.Second))
			if source, ok := sample["source"].(string); ok && source != "" {
				p.AddTag("source", source)
			}
			if m.Units != "" {
				p.AddTag("units", m.Units)
			}

			fields := 0
			for key, value := range sample {
				if skipKeys[key] {
					continue
				}
				if stringKeys[key] {
					if s, ok := value.(string); ok {
						p.AddTag(key, s)
					}
					continue
				}
				if f, ok := numeric(value); ok {
					p.AddField(strings.ToLower(key), f)
					fields++
				}
			}

			if fields == 0 {
				stats.NoFields++
				continue
			}

			p.SortTags()
			p.SortFields()
			points = append(points, p)
		}
	}

	return points, stats
}

func sampleTime(sample map[string]any) (time.Time, bool) {
	raw, _ := sample["date"].(string)
	if raw == "" {
		raw, _ = sample["startDate"].(string)
	}
	if raw == "" {
		return time.Time{}, false
	}

	if ts, err := time.Parse(sampleTimeLayout, raw); err == nil {
		return ts, true
	}
	for _, layout := range fallbackLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// numeric reports the float value of JSON numbers and booleans.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
