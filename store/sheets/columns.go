package sheets

import (
	"strconv"
	"strings"
	"time"

	"github.com/warp/timesheet/generic"
	"github.com/warp/timesheet/timesheet"
)

// =============================================================================
// SHEET COLUMNS
// =============================================================================

// Column headers of the response sheet. Fetched entries are keyed by them
// and the xlsx export writes them in this order.
const (
	ColTimestamp   = "Timestamp"
	ColEmail       = "Email Address"
	ColEntryType   = "Entry Type"
	ColDate        = "Date"
	ColProject     = "Project Name"
	ColTask        = "Task"
	ColBillingType = "Billing Type"
	ColHours       = "Hours Spent"
	ColWorkDesc    = "Work Description"
	ColLeaveType   = "Leave Type"
	ColSession     = "Session"
	ColFromDate    = "From Date"
	ColToDate      = "To Date"
	ColDayCount    = "Day Count"
	ColDescription = "Description"
)

// Columns is the sheet's column order.
var Columns = []string{
	ColTimestamp, ColEmail, ColEntryType, ColDate,
	ColProject, ColTask, ColBillingType, ColHours, ColWorkDesc,
	ColLeaveType, ColSession, ColFromDate, ColToDate, ColDayCount, ColDescription,
}

// Timestamp layouts seen in the Timestamp column. The form writes
// en-US locale strings; the script API returns ISO strings.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"1/2/2006, 3:04:05 PM",
	"1/2/2006 15:04:05",
	"2006-01-02 15:04:05",
}

// Cells converts a record into sheet cells keyed by column header.
func Cells(r timesheet.Record) map[string]string {
	cells := map[string]string{
		ColTimestamp: r.Timestamp.UTC().Format(time.RFC3339),
		ColEmail:     r.Email,
		ColEntryType: string(r.Type),
		ColDate:      dateCell(r.Date),
	}
	switch r.Type {
	case timesheet.EntryWork:
		cells[ColProject] = r.ProjectName
		cells[ColTask] = r.Task
		cells[ColBillingType] = string(r.BillingType)
		cells[ColHours] = r.HoursSpent.String()
		cells[ColWorkDesc] = r.Description
	case timesheet.EntryLeave:
		cells[ColLeaveType] = string(r.LeaveType)
		cells[ColSession] = string(r.Session)
		cells[ColFromDate] = dateCell(r.FromDate)
		cells[ColToDate] = dateCell(r.ToDate)
		cells[ColDayCount] = strconv.Itoa(r.LeavePeriod().Len())
		cells[ColDescription] = r.Description
	}
	return cells
}

// Decoder turns sheet cells into records. Date cells that carry a time of
// day are read in Location, so a midnight written in the sheet's zone stays
// on the same calendar day.
type Decoder struct {
	Location *time.Location
}

// Record converts one sheet row. ok is false for rows whose Entry Type is
// neither Work nor Leave.
func (d Decoder) Record(cells map[string]string) (rec timesheet.Record, ok bool) {
	typ := timesheet.ParseEntryType(cells[ColEntryType])
	if typ == "" {
		return timesheet.Record{}, false
	}

	rec = timesheet.Record{
		Type:      typ,
		Email:     timesheet.NormalizeEmail(cells[ColEmail]),
		Timestamp: d.timestamp(cells[ColTimestamp]),
		Date:      d.day(cells[ColDate]),
	}
	if typ == timesheet.EntryWork {
		rec.ProjectName = strings.TrimSpace(cells[ColProject])
		rec.Task = strings.TrimSpace(cells[ColTask])
		rec.BillingType = timesheet.ParseBillingType(cells[ColBillingType])
		rec.HoursSpent = generic.ParseHours(cells[ColHours])
		rec.Description = firstNonEmpty(cells[ColWorkDesc], cells[ColDescription])
		return rec, true
	}

	rec.LeaveType = timesheet.ParseLeaveType(cells[ColLeaveType])
	rec.Session = timesheet.ParseSession(cells[ColSession])
	rec.FromDate = d.day(cells[ColFromDate])
	rec.ToDate = d.day(cells[ColToDate])
	rec.Description = cells[ColDescription]
	if rec.FromDate.IsZero() {
		rec.FromDate = rec.Date
	}
	if rec.ToDate.IsZero() {
		rec.ToDate = rec.FromDate
	}
	return rec, true
}

func (d Decoder) location() *time.Location {
	if d.Location == nil {
		return time.UTC
	}
	return d.Location
}

// day reads a date cell. Unparseable cells become the zero day, which no
// status computation matches.
func (d Decoder) day(s string) generic.TimePoint {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return generic.DayOf(t.In(d.location()))
	}
	tp, err := generic.ParseDate(s)
	if err != nil {
		return generic.TimePoint{}
	}
	return tp
}

func (d Decoder) timestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, d.location()); err == nil {
			return t
		}
	}
	return time.Time{}
}

func dateCell(tp generic.TimePoint) string {
	if tp.IsZero() {
		return ""
	}
	return tp.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
