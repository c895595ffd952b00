package generic

import "fmt"

// =============================================================================
// PERIOD - Inclusive range of calendar days
// =============================================================================

// Period is a closed day range [Start, End]. A leave from Mar 10 to Mar 12
// is the Period covering three days.
type Period struct {
	Start TimePoint
	End   TimePoint
}

// NewPeriod validates that end is not before start.
func NewPeriod(start, end TimePoint) (Period, error) {
	p := Period{Start: start, End: end}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// SingleDay is the period covering only d.
func SingleDay(d TimePoint) Period { return Period{Start: d, End: d} }

func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return fmt.Errorf("%w: missing start or end", ErrInvalidPeriod)
	}
	if p.End.Before(p.Start) {
		return fmt.Errorf("%w: %s", ErrInvalidPeriod, p)
	}
	return nil
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Overlaps reports whether the two periods share at least one day.
func (p Period) Overlaps(other Period) bool {
	return p.Start.BeforeOrEqual(other.End) && other.Start.BeforeOrEqual(p.End)
}

// Days returns all days in the period, stepping one day at a time.
// An inverted period has no days.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Len is the number of days in the period.
func (p Period) Len() int {
	if p.End.Before(p.Start) {
		return 0
	}
	return DaysBetween(p.Start, p.End) + 1
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
