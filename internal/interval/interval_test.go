package interval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/errors"
)

var (
	utc      = time.UTC
	berlin   = time.FixedZone("CET", 3600)
	fixedNow = time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)
)

func TestNew_RejectsStartAfterEnd(t *testing.T) {
	start := time.Date(2020, 2, 1, 0, 0, 0, 0, utc)
	end := time.Date(2020, 1, 1, 0, 0, 0, 0, utc)

	_, err := New(start, end)
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrInvalidInterval))
}

func TestNew_AllowsEqualBounds(t *testing.T) {
	ts := time.Date(2020, 1, 1, 0, 0, 0, 0, utc)
	iv, err := New(ts, ts)
	require.NoError(t, err)
	require.True(t, iv.Contains(ts))
}

func TestParse_Defaults(t *testing.T) {
	iv, err := Parse("", "", fixedNow, utc)
	require.NoError(t, err)
	require.True(t, iv.Start.Equal(time.Unix(0, 0)))
	require.True(t, iv.End.Equal(fixedNow))
}

func TestParse_StartAfterEnd(t *testing.T) {
	_, err := Parse("2021-01-01", "2020-01-01", fixedNow, utc)
	require.True(t, errors.Is(err, errors.ErrInvalidInterval))
}

func TestParse_InvalidString(t *testing.T) {
	_, err := Parse("yesterday", "", fixedNow, utc)
	require.True(t, errors.Is(err, errors.ErrInvalidInterval))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		loc  *time.Location
		want time.Time
	}{
		{"2020", utc, time.Date(2020, 1, 1, 0, 0, 0, 0, utc)},
		{"2020-03", utc, time.Date(2020, 3, 1, 0, 0, 0, 0, utc)},
		{"2020-03-04", utc, time.Date(2020, 3, 4, 0, 0, 0, 0, utc)},
		{"2020-03-04", berlin, time.Date(2020, 3, 4, 0, 0, 0, 0, berlin)},
		{"2020-03-04T05:06", utc, time.Date(2020, 3, 4, 5, 6, 0, 0, utc)},
		{"2020-03-04T05:06:07", utc, time.Date(2020, 3, 4, 5, 6, 7, 0, utc)},
		{"2020-03-04T05:06:07.250", utc, time.Date(2020, 3, 4, 5, 6, 7, 250e6, utc)},
		{"2020-03-04T05:06:07Z", berlin, time.Date(2020, 3, 4, 5, 6, 7, 0, utc)},
		{"2020-03-04T05:06:07+02:00", utc, time.Date(2020, 3, 4, 3, 6, 7, 0, utc)},
		{"2020-03-04T05:06-05:00", utc, time.Date(2020, 3, 4, 10, 6, 0, 0, utc)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in, tt.loc)
			require.NoError(t, err)
			require.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
		})
	}
}

func TestContains_Inclusive(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, utc)
	end := time.Date(2020, 1, 31, 0, 0, 0, 0, utc)
	iv, err := New(start, end)
	require.NoError(t, err)

	require.True(t, iv.Contains(start))
	require.True(t, iv.Contains(end))
	require.False(t, iv.Contains(start.Add(-time.Millisecond)))
	require.False(t, iv.Contains(end.Add(time.Millisecond)))
}

func TestMonthRange(t *testing.T) {
	iv, err := New(
		time.Date(2019, 11, 20, 0, 0, 0, 0, utc),
		time.Date(2021, 2, 3, 0, 0, 0, 0, utc),
	)
	require.NoError(t, err)

	first, last := iv.Years()
	require.Equal(t, 2019, first)
	require.Equal(t, 2021, last)

	from, to, ok := iv.MonthRange(2019)
	require.True(t, ok)
	require.Equal(t, time.November, from)
	require.Equal(t, time.December, to)

	from, to, ok = iv.MonthRange(2020)
	require.True(t, ok)
	require.Equal(t, time.January, from)
	require.Equal(t, time.December, to)

	from, to, ok = iv.MonthRange(2021)
	require.True(t, ok)
	require.Equal(t, time.January, from)
	require.Equal(t, time.February, to)

	_, _, ok = iv.MonthRange(2022)
	require.False(t, ok)
}

func TestMonthRange_SingleYear(t *testing.T) {
	iv, err := New(
		time.Date(2020, 3, 5, 0, 0, 0, 0, utc),
		time.Date(2020, 5, 1, 0, 0, 0, 0, utc),
	)
	require.NoError(t, err)

	from, to, ok := iv.MonthRange(2020)
	require.True(t, ok)
	require.Equal(t, time.March, from)
	require.Equal(t, time.May, to)
}

func TestMonthRange_UsesUTC(t *testing.T) {
	// 00:30 on Jan 1 in +01:00 is still Dec 31 in UTC.
	start := time.Date(2021, 1, 1, 0, 30, 0, 0, berlin)
	iv, err := New(start, time.Date(2021, 3, 1, 0, 0, 0, 0, utc))
	require.NoError(t, err)

	first, _ := iv.Years()
	require.Equal(t, 2020, first)
	from, to, ok := iv.MonthRange(2020)
	require.True(t, ok)
	require.Equal(t, time.December, from)
	require.Equal(t, time.December, to)
}
