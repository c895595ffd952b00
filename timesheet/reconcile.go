/*
reconcile.go - Daily hours reconciliation for work rows

PURPOSE:
  A day holds exactly MaxDailyHours. Recorded leave and recorded work
  already consume part of it; the rows on the form must fill the rest,
  no more and no less.

TWO CHECKS:
  ValidateRowEdit - runs on every hours edit. Rejects an edit that would
                    push the day past the limit and reports how much the
                    row may hold instead. The form reverts the row to 0.
  CanSubmit       - runs before submission. Rejects unless recorded hours
                    plus form hours equal the full day exactly.

WorkForm keeps rows and status together and re-runs CanSubmit after every
change, so callers always know whether the form is submittable.

SEE ALSO:
  - status.go: DailyStatus
  - conflict.go: the equivalent check for leave submissions
*/
package timesheet

import (
	"fmt"

	"github.com/warp/timesheet/generic"
)

// ValidateRowEdit checks a proposed hours value for row rowIndex against the
// other rows and the day's recorded hours. It returns the hours to keep:
// proposed when accepted, zero with a *RejectionError otherwise. The error's
// MaxAllowed is the most the row could hold.
func ValidateRowEdit(rowIndex int, proposed generic.Amount, rows []Row, status DailyStatus) (generic.Amount, error) {
	if rowIndex < 0 || rowIndex >= len(rows) {
		return generic.ZeroHours(), fmt.Errorf("row %d: %w", rowIndex+1, generic.ErrNotFound)
	}

	// others excludes the edited row, so its previous value never counts.
	others := SumRows(rows, rowIndex)
	if status.TotalHours.Add(others).Add(proposed).GreaterThan(maxDaily()) {
		maxAllowed := maxDaily().Sub(status.TotalHours).Sub(others)
		e := reject(CodeExceedsDailyLimit,
			"Cannot exceed %d hours. Already logged: %s hrs. Current form: %s hrs. Maximum allowed: %s hrs.",
			MaxDailyHours, status.TotalHours, others, maxAllowed)
		e.Row = rowIndex + 1
		e.Date = status.Date
		e.Hours = proposed
		e.MaxAllowed = maxAllowed
		return generic.ZeroHours(), e
	}
	return proposed, nil
}

// CanSubmit decides whether rows may be submitted for status.Date.
// A full-day leave blocks everything; otherwise the day must total exactly
// MaxDailyHours once the rows are added.
func CanSubmit(rows []Row, status DailyStatus) error {
	if status.HasFullLeave {
		e := reject(CodeFullLeave, "Leave already applied for this date. Timesheet submission is not allowed.")
		e.Date = status.Date
		return e
	}
	if len(rows) == 0 {
		return reject(CodeNoRows, "Please add at least one timesheet row")
	}

	total := status.TotalHours.Add(SumRows(rows, -1))
	switch {
	case total.GreaterThan(maxDaily()):
		e := reject(CodeHoursNotExact,
			"Total hours exceed %d by %s. You have %s hours already logged. You can only add %s more hours.",
			MaxDailyHours, total.Sub(maxDaily()), status.TotalHours, status.Capacity())
		e.Date = status.Date
		e.Hours = total.Sub(maxDaily())
		return e
	case total.LessThan(maxDaily()):
		e := reject(CodeHoursNotExact,
			"Total hours must be exactly %d. Current total: %s hours. You need %s more hours.",
			MaxDailyHours, total, maxDaily().Sub(total))
		e.Date = status.Date
		e.Hours = maxDaily().Sub(total)
		return e
	}
	return nil
}

// =============================================================================
// WORK FORM - Rows plus status, re-evaluated after every change
// =============================================================================

type WorkForm struct {
	Status DailyStatus
	Rows   []Row

	// Ready is the result of CanSubmit after the last change; nil means
	// the form can be submitted.
	Ready error
}

// NewWorkForm starts an empty form for the day described by status.
func NewWorkForm(status DailyStatus) *WorkForm {
	f := &WorkForm{Status: status}
	f.evaluate()
	return f
}

func (f *WorkForm) evaluate() { f.Ready = CanSubmit(f.Rows, f.Status) }

// SetStatus switches the form to another day or a refreshed snapshot.
func (f *WorkForm) SetStatus(status DailyStatus) {
	f.Status = status
	f.evaluate()
}

// AddRow appends row with its hours run through ValidateRowEdit. A rejected
// row is still added, holding 0 hours, and the rejection is returned.
func (f *WorkForm) AddRow(row Row) error {
	hours := row.Hours
	row.Hours = generic.ZeroHours()
	f.Rows = append(f.Rows, row)
	return f.SetHours(len(f.Rows)-1, hours)
}

func (f *WorkForm) DeleteRow(i int) error {
	if i < 0 || i >= len(f.Rows) {
		return fmt.Errorf("row %d: %w", i+1, generic.ErrNotFound)
	}
	f.Rows = append(f.Rows[:i], f.Rows[i+1:]...)
	f.evaluate()
	return nil
}

// SetHours applies an hours edit. On rejection the row reverts to 0.
func (f *WorkForm) SetHours(i int, hours generic.Amount) error {
	kept, err := ValidateRowEdit(i, hours, f.Rows, f.Status)
	if i >= 0 && i < len(f.Rows) {
		f.Rows[i].Hours = kept
	}
	f.evaluate()
	return err
}

// Total is the form's hours, excluding what is already recorded.
func (f *WorkForm) Total() generic.Amount { return SumRows(f.Rows, -1) }
