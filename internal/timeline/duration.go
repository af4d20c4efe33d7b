package timeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/errors"
)

// DurationSpan is a record's time span. Older exports use millisecond epoch
// strings, newer ones ISO-8601 instants; the millisecond form wins when both
// are present.
type DurationSpan struct {
	StartTimestampMs string `json:"startTimestampMs,omitempty"`
	EndTimestampMs   string `json:"endTimestampMs,omitempty"`
	StartTimestamp   string `json:"startTimestamp,omitempty"`
	EndTimestamp     string `json:"endTimestamp,omitempty"`
}

// Start resolves the start instant.
func (d DurationSpan) Start() (time.Time, error) {
	return resolve("startTimestampMs", d.StartTimestampMs, "startTimestamp", d.StartTimestamp)
}

// End resolves the end instant.
func (d DurationSpan) End() (time.Time, error) {
	return resolve("endTimestampMs", d.EndTimestampMs, "endTimestamp", d.EndTimestamp)
}

// Bounds resolves both instants.
func (d DurationSpan) Bounds() (start, end time.Time, err error) {
	if start, err = d.Start(); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end, err = d.End(); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// Milliseconds returns end - start in milliseconds.
func (d DurationSpan) Milliseconds() (int64, error) {
	start, end, err := d.Bounds()
	if err != nil {
		return 0, err
	}
	return end.UnixMilli() - start.UnixMilli(), nil
}

// resolve prefers the millisecond field. Millisecond instants come back in
// UTC; ISO instants keep the offset written in the archive.
func resolve(msField, msValue, isoField, isoValue string) (time.Time, error) {
	if ms := strings.TrimSpace(msValue); ms != "" {
		n, err := strconv.ParseInt(ms, 10, 64)
		if err != nil {
			return time.Time{}, errors.NewMalformedTimestamp(msField, msValue, err)
		}
		return time.UnixMilli(n).UTC(), nil
	}
	if iso := strings.TrimSpace(isoValue); iso != "" {
		t, err := time.Parse(time.RFC3339Nano, iso)
		if err != nil {
			return time.Time{}, errors.NewMalformedTimestamp(isoField, isoValue, err)
		}
		return t, nil
	}
	return time.Time{}, errors.NewMalformedTimestamp(isoField, "", fmt.Errorf("neither %s nor %s is set", msField, isoField))
}
