package calendar

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBoundaries(t *testing.T) {
	// Wednesday 2024-03-13 14:30
	at := time.Date(2024, time.March, 13, 14, 30, 0, 0, time.UTC)

	assert.Equal(t, date(2024, time.March, 13), StartOfDay(at))
	assert.Equal(t, time.Date(2024, time.March, 13, 23, 59, 59, 999000000, time.UTC), EndOfDay(at))
	assert.Equal(t, date(2024, time.March, 11), StartOfWeek(at))
	assert.Equal(t, EndOfDay(date(2024, time.March, 17)), EndOfWeek(at))
	assert.Equal(t, date(2024, time.March, 1), StartOfMonth(at))
	assert.Equal(t, EndOfDay(date(2024, time.March, 31)), EndOfMonth(at))
	assert.Equal(t, date(2024, time.January, 1), StartOfYear(at))
	assert.Equal(t, EndOfDay(date(2024, time.December, 31)), EndOfYear(at))
}

func TestStartOfWeek_Sunday(t *testing.T) {
	// Sunday belongs to the week that started the previous Monday.
	assert.Equal(t, date(2024, time.March, 11), StartOfWeek(date(2024, time.March, 17)))
	assert.Equal(t, date(2024, time.March, 18), StartOfWeek(date(2024, time.March, 18)))
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 29, DaysInMonth(2024, time.February))
	assert.Equal(t, 28, DaysInMonth(2023, time.February))
	assert.Equal(t, 30, DaysInMonth(2024, time.April))
	assert.Equal(t, 31, DaysInMonth(2024, time.December))
}

func TestAddMonths_Clamps(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		n    int
		want time.Time
	}{
		{"jan31 leap", date(2024, time.January, 31), 1, date(2024, time.February, 29)},
		{"jan31 common", date(2023, time.January, 31), 1, date(2023, time.February, 28)},
		{"mar31 to apr", date(2024, time.March, 31), 1, date(2024, time.April, 30)},
		{"quarter", date(2024, time.November, 30), 3, date(2025, time.February, 28)},
		{"backwards", date(2024, time.March, 31), -1, date(2024, time.February, 29)},
		{"plain", date(2024, time.January, 15), 2, date(2024, time.March, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddMonths(tt.from, tt.n))
		})
	}
}

func TestAddYears_LeapDay(t *testing.T) {
	assert.Equal(t, date(2025, time.February, 28), AddYears(date(2024, time.February, 29), 1))
	assert.Equal(t, date(2028, time.February, 29), AddYears(date(2024, time.February, 29), 4))
}

func TestAddMonths_KeepsClock(t *testing.T) {
	at := time.Date(2024, time.January, 31, 9, 15, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.February, 29, 9, 15, 0, 0, time.UTC), AddMonths(at, 1))
}

func TestNextWeekday(t *testing.T) {
	wed := date(2024, time.March, 13)
	assert.Equal(t, wed, NextWeekday(wed, time.Wednesday))
	assert.Equal(t, date(2024, time.March, 18), NextWeekday(wed, time.Monday))
	assert.Equal(t, date(2024, time.March, 17), NextWeekday(wed, time.Sunday))
}

func TestPeriodsInRange_Months(t *testing.T) {
	start := date(2024, time.January, 15)
	end := EndOfDay(date(2024, time.April, 10))

	periods := slices.Collect(PeriodsInRange(start, end, Month))
	require.Len(t, periods, 4)

	assert.Equal(t, start, periods[0].Start)
	assert.Equal(t, "Jan 2024", periods[0].Label)
	assert.Equal(t, EndOfMonth(start), periods[0].End)
	assert.Equal(t, date(2024, time.February, 1), periods[1].Start)
	assert.Equal(t, "Apr 2024", periods[3].Label)
	assert.Equal(t, end, periods[3].End)

	for i := 1; i < len(periods); i++ {
		assert.Equal(t, periods[i-1].End.Add(time.Millisecond), periods[i].Start, "periods must be contiguous")
	}
}

func TestPeriodsInRange_Weeks(t *testing.T) {
	// Wed Mar 13 .. Tue Mar 26: partial week, full week, partial week.
	periods := slices.Collect(PeriodsInRange(date(2024, time.March, 13), EndOfDay(date(2024, time.March, 26)), Week))
	require.Len(t, periods, 3)
	assert.Equal(t, "Mar 11 - Mar 17", periods[0].Label)
	assert.Equal(t, date(2024, time.March, 13), periods[0].Start)
	assert.Equal(t, date(2024, time.March, 18), periods[1].Start)
	assert.Equal(t, EndOfDay(date(2024, time.March, 24)), periods[1].End)
}

func TestPeriodsInRange_Restartable(t *testing.T) {
	seq := PeriodsInRange(date(2024, time.January, 1), date(2024, time.January, 3), Day)
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	require.Len(t, first, 3)
	assert.Equal(t, first, second)
	assert.Equal(t, "2024-01-02", first[1].Label)
}

func TestPeriodsInRange_EarlyStop(t *testing.T) {
	n := 0
	for range PeriodsInRange(date(2020, time.January, 1), date(2024, time.December, 31), Year) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestPeriodsInRange_Inverted(t *testing.T) {
	periods := slices.Collect(PeriodsInRange(date(2024, time.February, 1), date(2024, time.January, 1), Day))
	assert.Empty(t, periods)
}

func TestParseGranularity(t *testing.T) {
	g, err := ParseGranularity("week")
	require.NoError(t, err)
	assert.Equal(t, Week, g)

	_, err = ParseGranularity("fortnight")
	assert.Error(t, err)
}

func TestPeriod_Contains(t *testing.T) {
	p := Period{Start: date(2024, time.March, 1), End: EndOfMonth(date(2024, time.March, 1))}
	assert.True(t, p.Contains(date(2024, time.March, 31)))
	assert.False(t, p.Contains(date(2024, time.April, 1)))
}

func TestPeriodOf(t *testing.T) {
	ts := time.Date(2024, time.February, 14, 15, 0, 0, 0, time.UTC)

	p := Month.PeriodOf(ts)
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, 29, p.End.Day())
	assert.Equal(t, "Feb 2024", p.Label)
	assert.True(t, p.Contains(ts))

	assert.Equal(t, "2024", Year.PeriodOf(ts).Label)
}
