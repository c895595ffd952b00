package timesheet

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/warp/timesheet/generic"
)

// Rules holds the configurable field checks applied before the hours and
// conflict rules. The daily limit is not part of it.
type Rules struct {
	MinEntryHours generic.Amount
	MaxEntryHours generic.Amount

	TaskMinLen             int
	TaskMaxLen             int
	DescriptionMaxLen      int
	LeaveDescriptionMinLen int

	MaxRangeDays       int
	FutureDatesAllowed bool
	FutureLeaveTypes   []LeaveType

	AllowedEmailDomains []string
	OTPLength           int

	DuplicateCheck bool
	WeekendWarning bool
	HolidayWarning bool
	Holidays       generic.HolidayCalendar

	// Now is the clock used for future-date checks. Defaults to time.Now.
	Now func() time.Time
}

func DefaultRules() Rules {
	return Rules{
		MinEntryHours:          generic.NewHours(0.5),
		MaxEntryHours:          generic.NewHours(24),
		TaskMinLen:             2,
		TaskMaxLen:             100,
		DescriptionMaxLen:      500,
		LeaveDescriptionMinLen: 5,
		MaxRangeDays:           365,
		FutureLeaveTypes:       []LeaveType{LeaveCasual},
		AllowedEmailDomains:    []string{"@enoahisolution.com", "@enoahisolution.co.in", "@enoahisolution.com.au"},
		OTPLength:              6,
		DuplicateCheck:         true,
		WeekendWarning:         true,
		Holidays:               generic.StaticCalendar{},
	}
}

func (r Rules) today() generic.TimePoint {
	if r.Now != nil {
		return generic.DayOf(r.Now())
	}
	return generic.Today()
}

// =============================================================================
// LOGIN FIELDS
// =============================================================================

// NormalizeEmail lowercases and trims an address. Sessions and records are
// keyed by the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r Rules) ValidateEmail(email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return invalidField("email", "Please enter your email address")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalidField("email", "Please enter a valid email address")
	}
	if len(r.AllowedEmailDomains) == 0 {
		return nil
	}
	for _, domain := range r.AllowedEmailDomains {
		if strings.HasSuffix(email, strings.ToLower(domain)) {
			return nil
		}
	}
	return invalidField("email", "Please use your company email address (%s)", strings.Join(r.AllowedEmailDomains, ", "))
}

func (r Rules) ValidateOTP(otp string) error {
	otp = strings.TrimSpace(otp)
	if len(otp) != r.OTPLength {
		return invalidField("otp", "Please enter the %d-digit OTP", r.OTPLength)
	}
	for _, c := range otp {
		if c < '0' || c > '9' {
			return invalidField("otp", "OTP must contain only digits")
		}
	}
	return nil
}

// =============================================================================
// WORK FIELDS
// =============================================================================

// ValidateWorkDate checks the date of a work submission.
func (r Rules) ValidateWorkDate(date generic.TimePoint) error {
	if date.IsZero() {
		return invalidField("date", "Please select a date")
	}
	if !r.FutureDatesAllowed && date.After(r.today()) {
		return invalidField("date", "Future dates are not allowed")
	}
	return nil
}

// ValidateRows checks every row's required fields and hours, reporting the
// first offending row by its 1-based number.
func (r Rules) ValidateRows(rows []Row) error {
	for i, row := range rows {
		if err := r.validateRow(i+1, row); err != nil {
			return err
		}
	}
	return nil
}

func (r Rules) validateRow(n int, row Row) error {
	fail := func(field, format string, args ...any) error {
		e := invalidField(field, "Row %d: %s", n, fmt.Sprintf(format, args...))
		e.Row = n
		return e
	}

	task := strings.TrimSpace(row.Task)
	if strings.TrimSpace(row.Project) == "" || task == "" || row.BillingType == "" {
		return fail("row", "Please fill Project, Task, and Billing Type")
	}
	if !Known(DomainBilling, string(row.BillingType)) {
		return fail("billingType", "Unknown billing type %q", row.BillingType)
	}
	if l := len([]rune(task)); l < r.TaskMinLen || l > r.TaskMaxLen {
		return fail("task", "Task must be between %d and %d characters", r.TaskMinLen, r.TaskMaxLen)
	}
	if r.DescriptionMaxLen > 0 && len([]rune(row.Description)) > r.DescriptionMaxLen {
		return fail("description", "Description cannot exceed %d characters", r.DescriptionMaxLen)
	}
	if row.Hours.LessThan(r.MinEntryHours) || row.Hours.GreaterThan(r.MaxEntryHours) {
		return fail("hours", "Hours must be between %s and %s", r.MinEntryHours, r.MaxEntryHours)
	}
	if !row.Hours.IsHalfStep() {
		return fail("hours", "Hours must be in 0.5 increments")
	}
	return nil
}

// CheckDuplicates rejects rows whose (date, project, task) already exists
// in entries, unless the user confirmed them.
func (r Rules) CheckDuplicates(sub WorkSubmission, entries []Record) error {
	if !r.DuplicateCheck || sub.AllowDuplicate {
		return nil
	}
	for i, row := range sub.Rows {
		for _, e := range entries {
			if e.WorkedOn(sub.Date) &&
				strings.EqualFold(strings.TrimSpace(e.ProjectName), strings.TrimSpace(row.Project)) &&
				strings.EqualFold(strings.TrimSpace(e.Task), strings.TrimSpace(row.Task)) {
				rej := reject(CodeDuplicateEntry,
					"Row %d: an entry for %s / %s on %s already exists. Submit again with duplicates allowed to add it anyway.",
					i+1, row.Project, row.Task, sub.Date)
				rej.Row = i + 1
				rej.Date = sub.Date
				return rej
			}
		}
	}
	return nil
}

// =============================================================================
// LEAVE FIELDS
// =============================================================================

func (r Rules) ValidateLeave(sub LeaveSubmission) error {
	if sub.LeaveType == "" {
		return invalidField("leaveType", "Please select a leave type")
	}
	if !Known(DomainLeave, string(sub.LeaveType)) {
		return invalidField("leaveType", "Unknown leave type %q", sub.LeaveType)
	}
	if sub.Session == "" {
		return invalidField("session", "Please select a session")
	}
	if !Known(DomainSession, string(sub.Session)) {
		return invalidField("session", "Unknown session %q", sub.Session)
	}
	if sub.FromDate.IsZero() || sub.ToDate.IsZero() {
		return invalidField("fromDate", "From date and To date are required")
	}
	if sub.ToDate.Before(sub.FromDate) {
		return invalidField("toDate", "To date cannot be before From date")
	}
	if r.MaxRangeDays > 0 && sub.Period().Len() > r.MaxRangeDays {
		return invalidField("toDate", "Leave cannot span more than %d days", r.MaxRangeDays)
	}
	if !r.FutureDatesAllowed && sub.ToDate.After(r.today()) && !r.futureAllowed(sub.LeaveType) {
		return invalidField("fromDate", "Future dates are only allowed for %s", r.futureLeaveNames())
	}
	if len([]rune(strings.TrimSpace(sub.Description))) < r.LeaveDescriptionMinLen {
		return invalidField("description", "Description must be at least %d characters", r.LeaveDescriptionMinLen)
	}
	return nil
}

func (r Rules) futureAllowed(lt LeaveType) bool {
	for _, allowed := range r.FutureLeaveTypes {
		if strings.EqualFold(string(allowed), string(lt)) {
			return true
		}
	}
	return false
}

func (r Rules) futureLeaveNames() string {
	if len(r.FutureLeaveTypes) == 0 {
		return "no leave type"
	}
	names := make([]string, len(r.FutureLeaveTypes))
	for i, lt := range r.FutureLeaveTypes {
		names[i] = string(lt)
	}
	return strings.Join(names, ", ")
}

// =============================================================================
// WARNINGS - Never block a submission
// =============================================================================

// Warnings lists weekend and holiday notices for days.
func (r Rules) Warnings(days ...generic.TimePoint) []string {
	var out []string
	for _, d := range days {
		if r.WeekendWarning && d.IsWeekend() {
			out = append(out, fmt.Sprintf("%s is a %s", d, d.Weekday()))
		}
		if r.HolidayWarning && r.Holidays != nil {
			if h, ok := r.Holidays.IsHoliday(d); ok {
				out = append(out, fmt.Sprintf("%s is a holiday (%s)", d, h.Name))
			}
		}
	}
	return out
}
