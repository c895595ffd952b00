package generic

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// TIME POINT - A calendar day (time of day is always ignored)
// =============================================================================

type TimePoint struct {
	Time time.Time
}

const DateLayout = "2006-01-02"

// Layouts accepted by ParseDate, in order. The sheet returns RFC3339
// timestamps for date cells; forms send ISO dates.
var dateLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"1/2/2006",
	"01/02/2006",
	"1/2/2006, 15:04:05",
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf drops the time of day, keeping the calendar date as seen in t's location.
func DayOf(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

func Today() TimePoint { return DayOf(time.Now()) }

// ParseDate parses a date in any of the accepted layouts.
func ParseDate(s string) (TimePoint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TimePoint{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DayOf(t), nil
		}
	}
	return TimePoint{}, fmt.Errorf("unrecognized date %q (use YYYY-MM-DD)", s)
}

// ParseISODate accepts only YYYY-MM-DD. Use it for user input, where a
// slashed date could be read day-first or month-first.
func ParseISODate(s string) (TimePoint, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return TimePoint{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD)", s)
	}
	return DayOf(t), nil
}

// MustParseDate is for tests and constants.
func MustParseDate(s string) TimePoint {
	tp, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return tp
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

func (tp TimePoint) normalize() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint { return TimePoint{Time: tp.normalize().AddDate(0, 0, n)} }

// Properties
func (tp TimePoint) Weekday() time.Weekday { return tp.Time.Weekday() }
func (tp TimePoint) IsWeekend() bool {
	wd := tp.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
func (tp TimePoint) IsZero() bool   { return tp.Time.IsZero() }
func (tp TimePoint) String() string { return tp.Time.Format(DateLayout) }

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

// Holiday is a company holiday. Recurring holidays match on month/day only.
type Holiday struct {
	Date      TimePoint
	Name      string
	Recurring bool
}

type HolidayCalendar interface {
	IsHoliday(date TimePoint) (Holiday, bool)
}

// StaticCalendar is a HolidayCalendar backed by a fixed list.
type StaticCalendar []Holiday

func (c StaticCalendar) IsHoliday(date TimePoint) (Holiday, bool) {
	for _, h := range c {
		if h.Recurring {
			if h.Date.Time.Month() == date.Time.Month() && h.Date.Time.Day() == date.Time.Day() {
				return h, true
			}
			continue
		}
		if h.Date.Equal(date) {
			return h, true
		}
	}
	return Holiday{}, false
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

func DaysBetween(from, to TimePoint) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}
