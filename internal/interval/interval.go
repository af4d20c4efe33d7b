// Package interval parses and validates the date range a conversion is restricted to.
package interval

import (
	"fmt"
	"strings"
	"time"

	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/errors"
)

// Interval is a closed time range [Start, End]. Start <= End always holds
// for values returned by New and Parse.
type Interval struct {
	Start time.Time
	End   time.Time
}

// New validates start <= end.
func New(start, end time.Time) (Interval, error) {
	if end.Before(start) {
		return Interval{}, errors.NewInvalidInterval(fmt.Sprintf(
			"start date %s must not be after end date %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339)))
	}
	return Interval{Start: start, End: end}, nil
}

// Parse builds an interval from optional ISO-8601 date strings. An empty
// start means the Unix epoch; an empty end means now. Partial dates are
// accepted; a missing time is midnight and a missing offset is loc.
func Parse(startStr, endStr string, now time.Time, loc *time.Location) (Interval, error) {
	start := time.Unix(0, 0).UTC()
	end := now

	if s := strings.TrimSpace(startStr); s != "" {
		t, err := ParseDate(s, loc)
		if err != nil {
			return Interval{}, errors.NewInvalidInterval(fmt.Sprintf("invalid start date %q: %v", s, err))
		}
		start = t
	}
	if s := strings.TrimSpace(endStr); s != "" {
		t, err := ParseDate(s, loc)
		if err != nil {
			return Interval{}, errors.NewInvalidInterval(fmt.Sprintf("invalid end date %q: %v", s, err))
		}
		end = t
	}

	return New(start, end)
}

// Layouts carrying an explicit offset ("Z" or ±hh:mm).
var zonedLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05Z07:00",
}

// Layouts without an offset, interpreted in the caller's location.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseDate parses a full or partial ISO-8601 date. Fractional seconds are
// accepted after the seconds field.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("not an ISO-8601 date")
}

// Contains reports whether t lies in the interval, bounds included.
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && !t.After(iv.End)
}

// Years returns the first and last UTC calendar year touched by the interval.
func (iv Interval) Years() (first, last int) {
	return iv.Start.UTC().Year(), iv.End.UTC().Year()
}

// MonthRange returns the inclusive UTC month range of year that can overlap
// the interval. Years strictly inside get January..December; boundary years
// are clipped. ok is false when year is outside the interval.
func (iv Interval) MonthRange(year int) (from, to time.Month, ok bool) {
	first, last := iv.Years()
	if year < first || year > last {
		return 0, 0, false
	}
	from, to = time.January, time.December
	if year == first {
		from = iv.Start.UTC().Month()
	}
	if year == last {
		to = iv.End.UTC().Month()
	}
	return from, to, true
}

// String renders the interval as "start/end" in RFC 3339.
func (iv Interval) String() string {
	return iv.Start.Format(time.RFC3339) + "/" + iv.End.Format(time.RFC3339)
}
