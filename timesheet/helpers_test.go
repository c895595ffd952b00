package timesheet_test

import (
	"time"

	"github.com/warp/timesheet/generic"
	"github.com/warp/timesheet/timesheet"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const testEmail = "dev@enoahisolution.com"

// monday is a plain working day used across tests.
var monday = generic.MustParseDate("2025-03-10")

// fixedNow is the Friday after monday, so monday is never in the future.
func fixedNow() time.Time { return time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC) }

func hours(f float64) generic.Amount { return generic.NewHours(f) }

func date(s string) generic.TimePoint { return generic.MustParseDate(s) }

func workOn(d generic.TimePoint, h float64) timesheet.Record {
	return timesheet.Record{
		Type:        timesheet.EntryWork,
		Email:       testEmail,
		Date:        d,
		ProjectName: "Project 1",
		Task:        "Existing task",
		BillingType: timesheet.Billable,
		HoursSpent:  hours(h),
	}
}

func leaveOn(from, to generic.TimePoint, session timesheet.Session) timesheet.Record {
	return timesheet.Record{
		Type:      timesheet.EntryLeave,
		Email:     testEmail,
		Date:      from,
		LeaveType: timesheet.LeaveCasual,
		Session:   session,
		FromDate:  from,
		ToDate:    to,
	}
}

func row(h float64) timesheet.Row {
	return timesheet.Row{
		Project:     "Project 1",
		Task:        "Build reports",
		BillingType: timesheet.Billable,
		Hours:       hours(h),
	}
}

func rowFor(project, task string, h float64) timesheet.Row {
	r := row(h)
	r.Project = project
	r.Task = task
	return r
}
