/*
Package generic provides the domain-agnostic value types the timesheet
engine is built on.

PURPOSE:
  Hours, calendar days and day ranges show up in every part of the
  timesheet: daily status, row reconciliation, leave conflicts, the
  spreadsheet wire format. This package keeps them precise and comparable
  so the domain code never does float arithmetic or time-of-day math.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (e.g., 7.5 hours)
  - ParseHours: Lenient parsing of sheet/form values ("" and "abc" are 0)

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so 0.5 steps sum exactly to 8
  2. Leniency at the edge: Malformed hours from the sheet count as zero
  3. Strictness in the core: Exact equality is a decimal comparison

USAGE:
  total := generic.NewHours(5).Add(generic.ParseHours("3"))
  total.Equal(generic.NewHours(8)) // true

SEE ALSO:
  - time.go: TimePoint (day-normalized dates)
  - period.go: Inclusive day ranges
*/
package generic

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit (hours for this system)
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const UnitHours Unit = "hours"

var halfStep = decimal.NewFromFloat(0.5)

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

// NewHours is shorthand for NewAmount(value, UnitHours).
func NewHours(value float64) Amount { return NewAmount(value, UnitHours) }

// ZeroHours returns 0 hours.
func ZeroHours() Amount { return Amount{Value: decimal.Zero, Unit: UnitHours} }

// ParseHours parses an hours value coming from a form field or a sheet cell.
// Empty and non-numeric input yields zero hours rather than an error.
func ParseHours(s string) Amount {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return ZeroHours()
	}
	return Amount{Value: d, Unit: UnitHours}
}

// ParseHoursStrict is ParseHours for callers that must reject garbage.
func ParseHoursStrict(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return ZeroHours(), fmt.Errorf("%w: %q", ErrInvalidHours, s)
	}
	return Amount{Value: d, Unit: UnitHours}, nil
}

func (a Amount) Add(b Amount) Amount       { return Amount{Value: a.Value.Add(b.Value), Unit: a.unit()} }
func (a Amount) Sub(b Amount) Amount       { return Amount{Value: a.Value.Sub(b.Value), Unit: a.unit()} }
func (a Amount) IsNegative() bool          { return a.Value.IsNegative() }
func (a Amount) IsZero() bool              { return a.Value.IsZero() }
func (a Amount) IsPositive() bool          { return a.Value.IsPositive() }
func (a Amount) Equal(b Amount) bool       { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool    { return a.Value.LessThan(b.Value) }
func (a Amount) Min(b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}
func (a Amount) Max(b Amount) Amount {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// IsHalfStep reports whether the amount is a whole multiple of 0.5.
func (a Amount) IsHalfStep() bool {
	return a.Value.Mod(halfStep).IsZero()
}

// Float64 is for JSON DTOs and spreadsheet cells only. Never compare floats.
func (a Amount) Float64() float64 {
	f, _ := a.Value.Float64()
	return f
}

// String renders hours the way users type them: "8", "7.5", "-0.5".
func (a Amount) String() string            { return a.Value.String() }

// The zero Amount{} has no unit; arithmetic on it adopts hours.
func (a Amount) unit() Unit {
	if a.Unit == "" {
		return UnitHours
	}
	return a.Unit
}
