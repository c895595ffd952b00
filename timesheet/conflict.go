package timesheet

import (
	"errors"

	"github.com/warp/timesheet/generic"
)

// ValidateLeaveSubmission checks a leave candidate against recorded entries,
// walking its days in order. The first day that carries work rejects with
// CodeWorkConflict; the first day already covered by leave rejects with
// CodeLeaveOverlap. Work is checked before leave on each day.
//
// Any leave counts as an overlap, including half days: two half-day leaves
// on one day can only be recorded outside this client.
func ValidateLeaveSubmission(candidate LeaveSubmission, entries []Record) error {
	period, err := generic.NewPeriod(candidate.FromDate, candidate.ToDate)
	if err != nil {
		field := "toDate"
		if candidate.FromDate.IsZero() {
			field = "fromDate"
		}
		msg := "To date cannot be before From date"
		if errors.Is(err, generic.ErrInvalidPeriod) && (candidate.FromDate.IsZero() || candidate.ToDate.IsZero()) {
			msg = "From date and To date are required"
		}
		return invalidField(field, "%s", msg)
	}

	var nearby []Record
	for _, e := range entries {
		if e.Span().Overlaps(period) {
			nearby = append(nearby, e)
		}
	}
	if len(nearby) == 0 {
		return nil
	}

	for _, day := range period.Days() {
		status := ComputeStatus(day, nearby)
		if status.WorkHours.IsPositive() {
			e := reject(CodeWorkConflict,
				"Cannot apply leave. You have already submitted %s hours of work for %s. Please contact admin to modify.",
				status.WorkHours, day)
			e.Date = day
			e.Hours = status.WorkHours
			return e
		}
		if status.LeaveHours.IsPositive() {
			e := reject(CodeLeaveOverlap,
				"Leave already applied for overlapping dates. Please check your existing leave entries.")
			e.Date = day
			return e
		}
	}
	return nil
}
