/*
Package calendar provides the date arithmetic used by the ledger.

PURPOSE:

	Boundary computation (start/end of day, week, month, year), calendar-aware
	addition, and splitting a range into reporting periods. All functions are
	pure and keep the location of their input.

CONVENTIONS:
  - Weeks start on Monday.
  - End-of-X boundaries are inclusive and millisecond precise (23:59:59.999),
    matching the epoch-millisecond resolution of the store.
  - Month and year addition clamps to the last valid day of the resulting
    month: Jan 31 + 1 month = Feb 28 (Feb 29 in a leap year).

SEE ALSO:
  - period.go: Granularity and PeriodsInRange
  - recurring/schedule.go: main consumer of the clamped arithmetic
*/
package calendar

import "time"

// =============================================================================
// BOUNDARIES
// =============================================================================

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// StartOfWeek returns the Monday at 00:00 of t's week.
func StartOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return StartOfDay(t).AddDate(0, 0, -offset)
}

// EndOfWeek returns the last millisecond of the Sunday closing t's week.
func EndOfWeek(t time.Time) time.Time { return EndOfDay(StartOfWeek(t).AddDate(0, 0, 6)) }

func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func EndOfMonth(t time.Time) time.Time {
	return EndOfDay(time.Date(t.Year(), t.Month(), DaysInMonth(t.Year(), t.Month()), 0, 0, 0, 0, t.Location()))
}

func StartOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}

func EndOfYear(t time.Time) time.Time {
	return EndOfDay(time.Date(t.Year(), time.December, 31, 0, 0, 0, 0, t.Location()))
}

// DaysInMonth returns the number of days of month in year.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// =============================================================================
// ARITHMETIC
// =============================================================================

func AddDays(t time.Time, n int) time.Time  { return t.AddDate(0, 0, n) }
func AddWeeks(t time.Time, n int) time.Time { return t.AddDate(0, 0, 7*n) }

// AddMonths adds n months, clamping the day to the resulting month's length.
// time.AddDate normalizes overflow instead (Jan 31 + 1 month = Mar 2/3), which
// is never what a ledger user means.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	return DateClamped(first.Year(), first.Month(), d, t)
}

// AddYears adds n years with the same clamping as AddMonths (Feb 29 + 1y = Feb 28).
func AddYears(t time.Time, n int) time.Time { return AddMonths(t, 12*n) }

// DateClamped builds year-month-day with the clock time and location of ref,
// clamping day into [1, DaysInMonth].
func DateClamped(year int, month time.Month, day int, ref time.Time) time.Time {
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, ref.Hour(), ref.Minute(), ref.Second(), ref.Nanosecond(), ref.Location())
}

// NextWeekday returns the first day on or after t that falls on wd.
func NextWeekday(t time.Time, wd time.Weekday) time.Time {
	return AddDays(t, (int(wd)-int(t.Weekday())+7)%7)
}

// MaxTime returns the later of a and b.
func MaxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// MinTime returns the earlier of a and b.
func MinTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
