package backfill

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/nerrad567/healthbridge/internal/remote"
)

// WindowsPerDay is the number of fixed query windows a day is split into.
const WindowsPerDay = 4

// windowStartHours are the local start hours of the four 6-hour windows.
var windowStartHours = [WindowsPerDay]int{0, 6, 12, 18}

var offsetPattern = regexp.MustCompile(`^([+-])(\d{2})(\d{2})$`)

// Window is one query window of a day.
type Window struct {
	remote.Window
	Day   time.Time
	Index int
}

// Label renders the window's hour span, e.g. "06:00-11:59".
func (w Window) Label() string {
	return fmt.Sprintf("%s-%s", w.Start.Format("15:04"), w.End.Format("15:04"))
}

// DayWindows splits day into [00:00:00-05:59:59], [06:00:00-11:59:59],
// [12:00:00-17:59:59] and [18:00:00-23:59:59] in loc.
func DayWindows(day time.Time, loc *time.Location) [WindowsPerDay]Window {
	y, m, d := day.Date()
	var windows [WindowsPerDay]Window
	for i, h := range windowStartHours {
		windows[i] = Window{
			Window: remote.Window{
				Start: time.Date(y, m, d, h, 0, 0, 0, loc),
				End:   time.Date(y, m, d, h+5, 59, 59, 0, loc),
			},
			Day:   dateOf(day),
			Index: i,
		}
	}
	return windows
}

// ParseOffset turns a "±HHMM" offset into a fixed zone.
func ParseOffset(offset string) (*time.Location, error) {
	m := offsetPattern.FindStringSubmatch(offset)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOffset, offset)
	}

	hours, _ := strconv.Atoi(m[2])
	minutes, _ := strconv.Atoi(m[3])
	if hours > 14 || minutes > 59 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOffset, offset)
	}

	seconds := hours*3600 + minutes*60
	if m[1] == "-" {
		seconds = -seconds
	}
	return time.FixedZone(offset, seconds), nil
}
