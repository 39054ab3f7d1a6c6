package calendar

import (
	"fmt"
	"iter"
	"time"
)

// =============================================================================
// GRANULARITY
// =============================================================================

// Granularity is the size of a reporting period.
type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
	Year  Granularity = "year"
)

// ParseGranularity validates s.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(s); g {
	case Day, Week, Month, Year:
		return g, nil
	}
	return "", fmt.Errorf("unknown granularity %q", s)
}

// Start returns the boundary of the period of size g that contains t.
func (g Granularity) Start(t time.Time) time.Time {
	switch g {
	case Week:
		return StartOfWeek(t)
	case Month:
		return StartOfMonth(t)
	case Year:
		return StartOfYear(t)
	default:
		return StartOfDay(t)
	}
}

// End returns the inclusive end of the period of size g that contains t.
func (g Granularity) End(t time.Time) time.Time {
	switch g {
	case Week:
		return EndOfWeek(t)
	case Month:
		return EndOfMonth(t)
	case Year:
		return EndOfYear(t)
	default:
		return EndOfDay(t)
	}
}

// PeriodOf returns the full calendar period of size g that contains t.
func (g Granularity) PeriodOf(t time.Time) Period {
	start, end := g.Start(t), g.End(t)
	return Period{Start: start, End: end, Label: g.label(start, end)}
}

func (g Granularity) label(start, end time.Time) string {
	switch g {
	case Week:
		return start.Format("Jan 2") + " - " + end.Format("Jan 2")
	case Month:
		return start.Format("Jan 2006")
	case Year:
		return start.Format("2006")
	default:
		return start.Format("2006-01-02")
	}
}

// =============================================================================
// PERIOD
// =============================================================================

// Period is an inclusive time window [Start, End] with a display label.
type Period struct {
	Start time.Time
	End   time.Time
	Label string
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

func (p Period) String() string {
	return "[" + p.Start.Format(time.RFC3339) + ", " + p.End.Format(time.RFC3339) + "]"
}

// PeriodsInRange yields contiguous, non-overlapping periods of size g that
// cover [start, end]. The first and last periods are clipped to the range;
// labels always describe the full calendar period. The sequence is lazy and
// can be ranged over any number of times. An inverted range yields nothing.
func PeriodsInRange(start, end time.Time, g Granularity) iter.Seq[Period] {
	return func(yield func(Period) bool) {
		for cur := start; !cur.After(end); {
			full := g.PeriodOf(cur)
			p := Period{
				Start: MaxTime(full.Start, start),
				End:   MinTime(full.End, end),
				Label: full.Label,
			}
			if !yield(p) {
				return
			}
			cur = StartOfDay(full.End).AddDate(0, 0, 1)
		}
	}
}
