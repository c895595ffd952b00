package generic

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// AMOUNT
// =============================================================================

func TestParseHours_Lenient(t *testing.T) {
	assert.True(t, ParseHours("").IsZero())
	assert.True(t, ParseHours("abc").IsZero())
	assert.True(t, ParseHours(" 7.5 ").Equal(NewHours(7.5)))
	assert.Equal(t, UnitHours, ParseHours("abc").Unit)
}

func TestParseHoursStrict(t *testing.T) {
	h, err := ParseHoursStrict("2.5")
	require.NoError(t, err)
	assert.Equal(t, "2.5", h.String())

	_, err = ParseHoursStrict("two")
	assert.ErrorIs(t, err, ErrInvalidHours)
	assert.True(t, IsClientError(err))
}

func TestAmount_HalfSteps(t *testing.T) {
	// GIVEN: Sixteen half hours
	var parts []Amount
	for i := 0; i < 16; i++ {
		parts = append(parts, NewHours(0.5))
	}

	// THEN: They sum to exactly 8
	total := ZeroHours()
	for _, p := range parts {
		total = total.Add(p)
	}
	assert.True(t, total.Equal(NewHours(8)))
	assert.Equal(t, "8", total.String())
	assert.Equal(t, 8.0, total.Float64())

	assert.True(t, NewHours(7.5).IsHalfStep())
	assert.False(t, NewHours(7.25).IsHalfStep())
}

func TestAmount_Arithmetic(t *testing.T) {
	eight := NewHours(8)
	five := NewHours(5)

	assert.Equal(t, "3", eight.Sub(five).String())
	assert.True(t, five.Sub(eight).IsNegative())
	assert.Equal(t, "-0.5", ZeroHours().Sub(NewHours(0.5)).String())
	assert.True(t, eight.GreaterThan(five))
	assert.True(t, five.Min(eight).Equal(five))
	assert.True(t, five.Max(eight).Equal(eight))
	assert.True(t, NewHours(-1).Max(ZeroHours()).IsZero())

	// The zero value adopts hours
	sum := Amount{}.Add(NewHours(2))
	assert.Equal(t, UnitHours, sum.Unit)
	assert.True(t, sum.Equal(NewHours(2)))
}

// =============================================================================
// TIME POINT
// =============================================================================

func TestParseDate(t *testing.T) {
	want := NewTimePoint(2025, time.March, 10)
	for _, in := range []string{
		"2025-03-10",
		" 2025-03-10 ",
		"2025-03-10T18:30:00Z",
		"2025-03-10T18:30:00.123Z",
		"2025-03-10 08:00:00",
		"3/10/2025",
		"03/10/2025",
	} {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.True(t, got.Equal(want), in)
	}

	for _, in := range []string{"", "tomorrow", "2025-13-01"} {
		_, err := ParseDate(in)
		assert.Error(t, err, in)
	}
}

func TestParseISODate(t *testing.T) {
	want := NewTimePoint(2025, time.March, 10)
	for _, in := range []string{"2025-03-10", " 2025-03-10 "} {
		got, err := ParseISODate(in)
		require.NoError(t, err, in)
		assert.True(t, got.Equal(want), in)
	}

	// Day-first and month-first readings differ, so neither is guessed
	for _, in := range []string{"10/03/2025", "3/10/2025", "2025-03-10T00:00:00Z", ""} {
		_, err := ParseISODate(in)
		assert.Error(t, err, in)
	}
}

func TestDayOf_KeepsLocalDate(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	late := time.Date(2025, time.March, 10, 23, 30, 0, 0, ist)

	assert.Equal(t, "2025-03-10", DayOf(late).String())
	assert.Equal(t, "2025-03-10", DayOf(late.UTC()).String())
}

func TestTimePoint_Calendar(t *testing.T) {
	assert.Equal(t, "2025-03-01", MustParseDate("2025-02-28").AddDays(1).String())
	assert.Equal(t, "2024-02-29", MustParseDate("2024-03-01").AddDays(-1).String())

	assert.True(t, MustParseDate("2025-03-15").IsWeekend())
	assert.True(t, MustParseDate("2025-03-16").IsWeekend())
	assert.False(t, MustParseDate("2025-03-14").IsWeekend())

	assert.Equal(t, 4, DaysBetween(MustParseDate("2025-03-10"), MustParseDate("2025-03-14")))
	assert.True(t, TimePoint{}.IsZero())
}

// =============================================================================
// PERIOD
// =============================================================================

func TestNewPeriod(t *testing.T) {
	_, err := NewPeriod(MustParseDate("2025-03-12"), MustParseDate("2025-03-10"))
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = NewPeriod(TimePoint{}, MustParseDate("2025-03-10"))
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	p, err := NewPeriod(MustParseDate("2025-03-10"), MustParseDate("2025-03-10"))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Len())
}

func TestPeriod_DaysAndContains(t *testing.T) {
	// GIVEN: A Friday-to-Monday leave
	p := Period{Start: MustParseDate("2025-03-14"), End: MustParseDate("2025-03-17")}

	// THEN: Every calendar day is covered, weekend included
	days := p.Days()
	require.Len(t, days, 4)
	assert.Equal(t, "2025-03-15", days[1].String())
	assert.Equal(t, 4, p.Len())

	assert.True(t, p.Contains(MustParseDate("2025-03-14")))
	assert.True(t, p.Contains(MustParseDate("2025-03-17")))
	assert.False(t, p.Contains(MustParseDate("2025-03-18")))

	inverted := Period{Start: p.End, End: p.Start}
	assert.Empty(t, inverted.Days())
	assert.Zero(t, inverted.Len())
}

func TestPeriod_Overlaps(t *testing.T) {
	p := Period{Start: MustParseDate("2025-03-10"), End: MustParseDate("2025-03-12")}

	tests := []struct {
		name  string
		other Period
		want  bool
	}{
		{"same range", p, true},
		{"shares last day", Period{Start: MustParseDate("2025-03-12"), End: MustParseDate("2025-03-14")}, true},
		{"inside", SingleDay(MustParseDate("2025-03-11")), true},
		{"day after", SingleDay(MustParseDate("2025-03-13")), false},
		{"week before", Period{Start: MustParseDate("2025-03-03"), End: MustParseDate("2025-03-07")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(p))
		})
	}
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestStaticCalendar(t *testing.T) {
	cal := StaticCalendar{
		{Date: MustParseDate("2024-12-25"), Name: "Christmas", Recurring: true},
		{Date: MustParseDate("2025-03-14"), Name: "Holi"},
	}

	h, ok := cal.IsHoliday(MustParseDate("2025-12-25"))
	require.True(t, ok)
	assert.Equal(t, "Christmas", h.Name)

	_, ok = cal.IsHoliday(MustParseDate("2025-03-14"))
	assert.True(t, ok)

	_, ok = cal.IsHoliday(MustParseDate("2026-03-14"))
	assert.False(t, ok)
}

// =============================================================================
// REGISTRY
// =============================================================================

type fruit string

func (f fruit) CategoryID() string     { return string(f) }
func (f fruit) CategoryDomain() string { return "test-fruit" }

func TestCategoryRegistry(t *testing.T) {
	RegisterCategory(fruit("Pear"))
	RegisterCategory(fruit("Apple"))

	// Lookups ignore case and padding
	assert.Equal(t, fruit("Apple"), LookupCategory("test-fruit", "  apple "))
	assert.Nil(t, LookupCategory("test-fruit", "Durian"))
	assert.Nil(t, LookupCategory("other", "Apple"))

	list := ListCategories("test-fruit")
	require.Len(t, list, 2)
	assert.Equal(t, "Apple", list[0].CategoryID())
	assert.Equal(t, "Pear", list[1].CategoryID())

	// Unregistered labels still load
	c := GetOrCreateCategory("test-fruit", " Durian ")
	assert.Equal(t, StringCategory{ID: "Durian", Domain: "test-fruit"}, c)
	assert.Equal(t, fruit("Pear"), GetOrCreateCategory("test-fruit", "PEAR"))
}

func TestErrorHelpers(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("row 3: %w", ErrNotFound)))
	assert.False(t, IsNotFound(ErrUnauthorized))
	assert.True(t, IsClientError(fmt.Errorf("leave: %w", ErrInvalidPeriod)))
	assert.False(t, IsClientError(ErrNotFound))
}
