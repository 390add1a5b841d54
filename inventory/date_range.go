package inventory

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// DateRange is an inclusive range of calendar days.
//
// Start and End are normalized to midnight UTC, so [2025-06-01, 2025-06-03] covers three rental days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange builds a DateRange from the calendar days of start and end, read in their own location.
// Returns a ValidationError if start is after end or one of them is zero.
func NewDateRange(start, end time.Time) (DateRange, error) {
	if start.IsZero() {
		return DateRange{}, NewValidationError("start", "must be set")
	}

	if end.IsZero() {
		return DateRange{}, NewValidationError("end", "must be set")
	}

	r := DateRange{Start: StartOfDay(start), End: StartOfDay(end)}
	if r.Start.After(r.End) {
		return DateRange{}, NewValidationError("period", fmt.Sprintf("start %s is after end %s", r.Start.Format(dateLayout), r.End.Format(dateLayout)))
	}

	return r, nil
}

// MustDateRange is like NewDateRange but panics on invalid input. Meant for tests and constants.
func MustDateRange(start, end time.Time) DateRange {
	r, err := NewDateRange(start, end)
	if err != nil {
		panic(err)
	}

	return r
}

// Day returns midnight UTC of the given calendar day.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// StartOfDay returns midnight UTC of the calendar day t falls on in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayCount returns the number of rental days, both ends included.
func (r DateRange) DayCount() int {
	if r.IsZero() {
		return 0
	}

	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Overlaps reports whether the two ranges share at least one day.
func (r DateRange) Overlaps(other DateRange) bool {
	return !r.Start.After(other.End) && !other.Start.After(r.End)
}

// Contains reports whether the given day lies inside the range.
func (r DateRange) Contains(day time.Time) bool {
	day = StartOfDay(day)
	return !day.Before(r.Start) && !day.After(r.End)
}

// Shift moves both ends by the given number of days. The day count stays unchanged.
func (r DateRange) Shift(days int) DateRange {
	return DateRange{Start: r.Start.AddDate(0, 0, days), End: r.End.AddDate(0, 0, days)}
}

// Equal compares two ranges day by day.
func (r DateRange) Equal(other DateRange) bool {
	return r.Start.Equal(other.Start) && r.End.Equal(other.End)
}

// IsZero reports whether the range was never set.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s, %s]", r.Start.Format(dateLayout), r.End.Format(dateLayout))
}

// Span returns the smallest range covering all given ranges: [min(start), max(end)].
// It returns a zero DateRange if no ranges are given.
func Span(ranges ...DateRange) DateRange {
	if len(ranges) == 0 {
		return DateRange{}
	}

	span := ranges[0]
	for _, r := range ranges[1:] {
		if r.Start.Before(span.Start) {
			span.Start = r.Start
		}

		if r.End.After(span.End) {
			span.End = r.End
		}
	}

	return span
}
