package timesheet

import "github.com/warp/timesheet/generic"

// DailyStatus is the day-level view used by every hours rule.
// Fields are always consistent: TotalHours = LeaveHours + WorkHours,
// RemainingHours = MaxDailyHours - TotalHours (may be negative).
type DailyStatus struct {
	Date            generic.TimePoint
	LeaveHours      generic.Amount
	WorkHours       generic.Amount
	TotalHours      generic.Amount
	RemainingHours  generic.Amount
	HasFullLeave    bool
	HasPartialLeave bool
}

// ComputeStatus derives the day's status from a snapshot of the user's
// records. Pure: the same snapshot always yields the same status.
//
// Every leave covering date contributes its session hours and the sum is
// capped at the full day, so two half-day leaves make a full day. Work
// records contribute their hours; unparseable values were already read as 0.
func ComputeStatus(date generic.TimePoint, entries []Record) DailyStatus {
	leave := generic.ZeroHours()
	work := generic.ZeroHours()

	for _, e := range entries {
		switch {
		case e.CoversDay(date):
			leave = leave.Add(e.Session.Hours())
		case e.WorkedOn(date):
			work = work.Add(e.HoursSpent)
		}
	}
	leave = leave.Min(maxDaily())

	total := leave.Add(work)
	return DailyStatus{
		Date:            date,
		LeaveHours:      leave,
		WorkHours:       work,
		TotalHours:      total,
		RemainingHours:  maxDaily().Sub(total),
		HasFullLeave:    leave.Equal(maxDaily()),
		HasPartialLeave: leave.IsPositive() && leave.LessThan(maxDaily()),
	}
}

// Capacity is how many hours can still be added to the day, never negative.
func (s DailyStatus) Capacity() generic.Amount {
	return s.RemainingHours.Max(generic.ZeroHours())
}
