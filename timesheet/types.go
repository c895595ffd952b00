// Package timesheet implements daily-hours reconciliation and leave
// conflict detection for timesheet submissions.
// It uses the generic value types for hours, days and day ranges.
package timesheet

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/warp/timesheet/generic"
)

// =============================================================================
// DAILY LIMITS
// =============================================================================

const (
	// MaxDailyHours is the full workday. Work submissions must bring a day
	// to exactly this total. Not configurable.
	MaxDailyHours = 8

	FullDayLeaveHours    = 8
	PartialDayLeaveHours = 4
)

func maxDaily() generic.Amount { return generic.NewHours(MaxDailyHours) }

// =============================================================================
// CATEGORIES
// =============================================================================

const (
	DomainLeave   = "leave"
	DomainBilling = "billing"
	DomainSession = "session"
)

type EntryType string

const (
	EntryWork  EntryType = "Work"
	EntryLeave EntryType = "Leave"
)

// ParseEntryType accepts any casing; unknown values return "".
func ParseEntryType(s string) EntryType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "work":
		return EntryWork
	case "leave":
		return EntryLeave
	}
	return ""
}

type BillingType string

func (b BillingType) CategoryID() string     { return string(b) }
func (b BillingType) CategoryDomain() string { return DomainBilling }

const (
	Billable    BillingType = "Billable"
	NonBillable BillingType = "Non-Billable"
)

type LeaveType string

func (l LeaveType) CategoryID() string     { return string(l) }
func (l LeaveType) CategoryDomain() string { return DomainLeave }

const (
	LeaveCasual    LeaveType = "Casual Leave"
	LeaveSick      LeaveType = "Sick Leave"
	LeaveEarned    LeaveType = "Earned Leave"
	LeaveCompOff   LeaveType = "Comp Off"
	LeaveLossOfPay LeaveType = "Loss of Pay"
)

// Session is the granularity of a leave. Any label containing "Full Day"
// counts as a full day; everything else is a half day.
type Session string

func (s Session) CategoryID() string     { return string(s) }
func (s Session) CategoryDomain() string { return DomainSession }

const (
	SessionFullDay    Session = "Full Day"
	SessionFirstHalf  Session = "First Half"
	SessionSecondHalf Session = "Second Half"
)

func (s Session) IsFullDay() bool { return strings.Contains(string(s), "Full Day") }

// Hours is what one day of this session contributes to the daily total.
func (s Session) Hours() generic.Amount {
	if s.IsFullDay() {
		return generic.NewHours(FullDayLeaveHours)
	}
	return generic.NewHours(PartialDayLeaveHours)
}

func init() {
	for _, b := range []BillingType{Billable, NonBillable} {
		generic.RegisterCategory(b)
	}
	for _, l := range []LeaveType{LeaveCasual, LeaveSick, LeaveEarned, LeaveCompOff, LeaveLossOfPay} {
		generic.RegisterCategory(l)
	}
	for _, s := range []Session{SessionFullDay, SessionFirstHalf, SessionSecondHalf} {
		generic.RegisterCategory(s)
	}
}

// ParseBillingType returns the canonical spelling of a registered billing
// type, or the trimmed input when it is unknown.
func ParseBillingType(s string) BillingType {
	return BillingType(generic.GetOrCreateCategory(DomainBilling, s).CategoryID())
}

func ParseLeaveType(s string) LeaveType {
	return LeaveType(generic.GetOrCreateCategory(DomainLeave, s).CategoryID())
}

func ParseSession(s string) Session {
	return Session(generic.GetOrCreateCategory(DomainSession, s).CategoryID())
}

// Known reports whether a label was registered for the domain.
func Known(domain, label string) bool {
	return generic.LookupCategory(domain, label) != nil
}

// =============================================================================
// RECORD - One persisted spreadsheet row
// =============================================================================

// Record is one row of the remote sheet. Work rows use the work fields,
// leave rows the leave fields; Description is shared.
type Record struct {
	Type      EntryType
	Email     string
	Timestamp time.Time

	// Work: one task on one day.
	Date        generic.TimePoint
	ProjectName string
	Task        string
	BillingType BillingType
	Description string
	HoursSpent  generic.Amount

	// Leave: every day in [FromDate, ToDate].
	LeaveType LeaveType
	Session   Session
	FromDate  generic.TimePoint
	ToDate    generic.TimePoint
}

func (r Record) IsWork() bool  { return r.Type == EntryWork }
func (r Record) IsLeave() bool { return r.Type == EntryLeave }

func (r Record) LeavePeriod() generic.Period {
	return generic.Period{Start: r.FromDate, End: r.ToDate}
}

// Span is the days a record occupies: the leave range, or the work date.
func (r Record) Span() generic.Period {
	if r.IsLeave() {
		return r.LeavePeriod()
	}
	return generic.SingleDay(r.Date)
}

// CoversDay reports whether a leave record spans d.
func (r Record) CoversDay(d generic.TimePoint) bool {
	return r.IsLeave() && r.LeavePeriod().Contains(d)
}

// WorkedOn reports whether a work record is dated d.
func (r Record) WorkedOn(d generic.TimePoint) bool {
	return r.IsWork() && r.Date.Equal(d)
}

// =============================================================================
// ROW - In-progress work row (not yet persisted)
// =============================================================================

type Row struct {
	Project     string
	Task        string
	BillingType BillingType
	Description string
	Hours       generic.Amount
}

type rowJSON struct {
	Project     string          `json:"project"`
	Task        string          `json:"task"`
	BillingType string          `json:"billingType"`
	Description string          `json:"description"`
	Hours       json.RawMessage `json:"hours"`
}

func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(rowJSON{
		Project:     r.Project,
		Task:        r.Task,
		BillingType: string(r.BillingType),
		Description: r.Description,
		Hours:       json.RawMessage(r.Hours.Value.String()),
	})
}

// UnmarshalJSON accepts hours as a number or a string. Unparseable hours
// become 0, the same as an empty form field.
func (r *Row) UnmarshalJSON(data []byte) error {
	var raw rowJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Row{
		Project:     raw.Project,
		Task:        raw.Task,
		BillingType: ParseBillingType(raw.BillingType),
		Description: raw.Description,
		Hours:       generic.ParseHours(strings.Trim(string(raw.Hours), `"`)),
	}
	return nil
}

// SumRows totals the hours of rows, skipping index skip (-1 skips none).
func SumRows(rows []Row, skip int) generic.Amount {
	total := generic.ZeroHours()
	for i, row := range rows {
		if i == skip {
			continue
		}
		total = total.Add(row.Hours)
	}
	return total
}

// =============================================================================
// SUBMISSIONS
// =============================================================================

// WorkSubmission is a day's batch of rows.
type WorkSubmission struct {
	Email string
	Date  generic.TimePoint
	Rows  []Row

	// AllowDuplicate confirms rows that repeat an existing (date, project,
	// task) combination.
	AllowDuplicate bool
}

// Records expands the batch into one work record per row.
func (w WorkSubmission) Records(at time.Time) []Record {
	records := make([]Record, len(w.Rows))
	for i, row := range w.Rows {
		records[i] = Record{
			Type:        EntryWork,
			Email:       w.Email,
			Timestamp:   at,
			Date:        w.Date,
			ProjectName: row.Project,
			Task:        row.Task,
			BillingType: row.BillingType,
			Description: row.Description,
			HoursSpent:  row.Hours,
		}
	}
	return records
}

// LeaveSubmission is a leave over an inclusive date range.
type LeaveSubmission struct {
	Email       string
	LeaveType   LeaveType
	Session     Session
	FromDate    generic.TimePoint
	ToDate      generic.TimePoint
	Description string
}

func (l LeaveSubmission) Period() generic.Period {
	return generic.Period{Start: l.FromDate, End: l.ToDate}
}

// Record converts the leave into its persisted form. The sheet's Date
// column holds the first day of the leave.
func (l LeaveSubmission) Record(at time.Time) Record {
	return Record{
		Type:        EntryLeave,
		Email:       l.Email,
		Timestamp:   at,
		Date:        l.FromDate,
		LeaveType:   l.LeaveType,
		Session:     l.Session,
		FromDate:    l.FromDate,
		ToDate:      l.ToDate,
		Description: l.Description,
	}
}

// Submission is exactly one create-record call to the remote store.
type Submission struct {
	ID        string
	Type      EntryType
	Email     string
	Timestamp time.Time
	Records   []Record
}

func (s Submission) String() string {
	return fmt.Sprintf("%s %s submission %s (%d records)", s.Email, s.Type, s.ID, len(s.Records))
}
