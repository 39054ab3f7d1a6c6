/*
Package recurring turns recurring templates into ledger transactions.

PURPOSE:

	A template carries a schedule (frequency, start date, optional anchor day)
	and the transaction it produces. The Scheduler materializes due templates
	and advances their NextExecuteAt; this file holds the pure date rules.

SCHEDULE RULES:

	anchor = lastExecutedAt, or StartDate when the template never ran.

	daily                 first run StartDate, then anchor + 1 day
	weekly / biweekly     DayOfWeek set:
	                        never ran  -> first DayOfWeek on/after StartDate
	                        ran        -> first DayOfWeek on/after anchor + 7/14 days
	                      DayOfWeek unset:
	                        StartDate, then anchor + 7/14 days
	monthly / quarterly   DayOfMonth set:
	/ yearly                never ran  -> DayOfMonth in StartDate's month, one
	                                      interval later if that is before StartDate
	                        ran        -> DayOfMonth in anchor month + 1/3/12
	                      DayOfMonth unset:
	                        StartDate, then anchor + 1/3/12 months

	DayOfMonth is always clamped to the target month's length (31 in February
	lands on the 28th or 29th). Every result is truncated to midnight and never
	earlier than the start of today.

SEE ALSO:
  - scheduler.go: due detection and execution
  - calendar/calendar.go: clamped month arithmetic
*/
package recurring

import (
	"time"

	"github.com/warp/pocket-ledger/calendar"
	"github.com/warp/pocket-ledger/ledger"
)

// Schedule is the date-relevant projection of a template.
type Schedule struct {
	Frequency  ledger.Frequency
	StartDate  time.Time
	DayOfMonth *int
	DayOfWeek  *int
}

// ScheduleOf extracts the schedule of r.
func ScheduleOf(r ledger.RecurringTransaction) Schedule {
	return Schedule{
		Frequency:  r.Frequency,
		StartDate:  r.StartDate,
		DayOfMonth: r.DayOfMonth,
		DayOfWeek:  r.DayOfWeek,
	}
}

// NextExecuteDate returns the next occurrence of s after lastExecutedAt (nil
// if the template never ran), never earlier than the start of today.
func NextExecuteDate(s Schedule, lastExecutedAt *time.Time, today time.Time) time.Time {
	var next time.Time
	switch s.Frequency {
	case ledger.FreqWeekly:
		next = nextWeekly(s, lastExecutedAt, 7)
	case ledger.FreqBiweekly:
		next = nextWeekly(s, lastExecutedAt, 14)
	case ledger.FreqMonthly:
		next = nextMonthly(s, lastExecutedAt, 1)
	case ledger.FreqQuarterly:
		next = nextMonthly(s, lastExecutedAt, 3)
	case ledger.FreqYearly:
		next = nextMonthly(s, lastExecutedAt, 12)
	default:
		next = nextDaily(s, lastExecutedAt)
	}
	return calendar.MaxTime(calendar.StartOfDay(next), calendar.StartOfDay(today))
}

func nextDaily(s Schedule, last *time.Time) time.Time {
	if last == nil {
		return s.StartDate
	}
	return calendar.AddDays(*last, 1)
}

func nextWeekly(s Schedule, last *time.Time, days int) time.Time {
	anchor := s.StartDate
	if last != nil {
		anchor = calendar.AddDays(*last, days)
	}
	if s.DayOfWeek == nil {
		return anchor
	}
	return calendar.NextWeekday(anchor, time.Weekday(*s.DayOfWeek))
}

func nextMonthly(s Schedule, last *time.Time, months int) time.Time {
	if s.DayOfMonth == nil {
		if last == nil {
			return s.StartDate
		}
		return calendar.AddMonths(*last, months)
	}

	day := *s.DayOfMonth
	if last != nil {
		return dayInMonth(calendar.StartOfMonth(*last).AddDate(0, months, 0), day)
	}

	first := dayInMonth(s.StartDate, day)
	if calendar.StartOfDay(first).Before(calendar.StartOfDay(s.StartDate)) {
		first = dayInMonth(calendar.StartOfMonth(s.StartDate).AddDate(0, months, 0), day)
	}
	return first
}

// dayInMonth is day (clamped) in the month of t.
func dayInMonth(t time.Time, day int) time.Time {
	return calendar.DateClamped(t.Year(), t.Month(), day, t)
}
