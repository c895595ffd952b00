/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON shapes of the HTTP API. Dates are YYYY-MM-DD strings and hours are
  plain numbers; the domain types stay decimal and day-normalized.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Done in handlers and the timesheet package, not here.

SEE ALSO:
  - handlers.go: Uses these types
  - timesheet/types.go: Record, Row, submissions
*/
package api

import (
	"fmt"
	"time"

	"github.com/warp/timesheet/generic"
	"github.com/warp/timesheet/timesheet"
)

// =============================================================================
// AUTH
// =============================================================================

type SendOTPRequest struct {
	Email string `json:"email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	Email     string `json:"email"`
}

// MessageResponse acknowledges requests that return no data.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// OptionsDTO feeds the form's select boxes.
type OptionsDTO struct {
	Projects      []string `json:"projects"`
	BillingTypes  []string `json:"billing_types"`
	LeaveTypes    []string `json:"leave_types"`
	Sessions      []string `json:"sessions"`
	MaxDailyHours float64  `json:"max_daily_hours"`
	MinEntryHours float64  `json:"min_entry_hours"`
	MaxEntryHours float64  `json:"max_entry_hours"`
	OTPEnabled    bool     `json:"otp_enabled"`
}

// =============================================================================
// ENTRIES AND STATUS
// =============================================================================

// EntryDTO is one sheet row. Work and leave fields are mutually exclusive.
type EntryDTO struct {
	EntryType   string  `json:"entry_type"`
	Email       string  `json:"email"`
	Timestamp   string  `json:"timestamp,omitempty"`
	Date        string  `json:"date,omitempty"`
	ProjectName string  `json:"project_name,omitempty"`
	Task        string  `json:"task,omitempty"`
	BillingType string  `json:"billing_type,omitempty"`
	Description string  `json:"description,omitempty"`
	HoursSpent  float64 `json:"hours_spent,omitempty"`
	LeaveType   string  `json:"leave_type,omitempty"`
	Session     string  `json:"session,omitempty"`
	FromDate    string  `json:"from_date,omitempty"`
	ToDate      string  `json:"to_date,omitempty"`
	DayCount    int     `json:"day_count,omitempty"`
}

type EntriesResponse struct {
	Entries   []EntryDTO `json:"entries"`
	FetchedAt string     `json:"fetched_at,omitempty"`
	Stale     bool       `json:"stale"`
}

type StatusDTO struct {
	Date            string  `json:"date"`
	LeaveHours      float64 `json:"leave_hours"`
	WorkHours       float64 `json:"work_hours"`
	TotalHours      float64 `json:"total_hours"`
	RemainingHours  float64 `json:"remaining_hours"`
	Capacity        float64 `json:"capacity"`
	HasFullLeave    bool    `json:"has_full_leave"`
	HasPartialLeave bool    `json:"has_partial_leave"`
	Stale           bool    `json:"stale,omitempty"`
}

type SelectDateRequest struct {
	Date string `json:"date"`
}

type DateAdvisoryDTO struct {
	Status     StatusDTO `json:"status"`
	CanAddRows bool      `json:"can_add_rows"`
	Message    string    `json:"message,omitempty"`
	Warnings   []string  `json:"warnings,omitempty"`
	Stale      bool      `json:"stale"`
}

// =============================================================================
// WORK AND LEAVE
// =============================================================================

type RowDTO struct {
	Project     string  `json:"project"`
	Task        string  `json:"task"`
	BillingType string  `json:"billing_type"`
	Description string  `json:"description"`
	Hours       float64 `json:"hours"`
}

type ValidateRowRequest struct {
	Date     string   `json:"date"`
	RowIndex int      `json:"row_index"`
	Hours    float64  `json:"hours"`
	Rows     []RowDTO `json:"rows"`
}

type ValidateRowResponse struct {
	Accepted bool    `json:"accepted"`
	Hours    float64 `json:"hours"`
}

type WorkRequest struct {
	Date           string   `json:"date"`
	Rows           []RowDTO `json:"rows"`
	AllowDuplicate bool     `json:"allow_duplicate"`
}

type WorkCheckResponse struct {
	OK     bool      `json:"ok"`
	Status StatusDTO `json:"status"`
	Total  float64   `json:"total"`
}

type LeaveRequest struct {
	LeaveType   string `json:"leave_type"`
	Session     string `json:"session"`
	FromDate    string `json:"from_date"`
	ToDate      string `json:"to_date"`
	Description string `json:"description"`
}

// OutcomeDTO is the result of an accepted submission.
type OutcomeDTO struct {
	State        string     `json:"state"`
	SubmissionID string     `json:"submission_id"`
	Entries      []EntryDTO `json:"entries"`
	Warnings     []string   `json:"warnings,omitempty"`
	Status       *StatusDTO `json:"status,omitempty"`
}

// =============================================================================
// DRAFTS
// =============================================================================

type DraftDTO struct {
	Date    string   `json:"date"`
	Rows    []RowDTO `json:"rows"`
	SavedAt string   `json:"saved_at,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// RejectionDetails locates a rejection for the form.
type RejectionDetails struct {
	Field      string   `json:"field,omitempty"`
	Row        int      `json:"row,omitempty"`
	Date       string   `json:"date,omitempty"`
	Hours      *float64 `json:"hours,omitempty"`
	MaxAllowed *float64 `json:"max_allowed,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toEntryDTO(r timesheet.Record) EntryDTO {
	dto := EntryDTO{
		EntryType:   string(r.Type),
		Email:       r.Email,
		Date:        dateString(r.Date),
		Description: r.Description,
	}
	if !r.Timestamp.IsZero() {
		dto.Timestamp = r.Timestamp.UTC().Format(time.RFC3339)
	}
	if r.IsWork() {
		dto.ProjectName = r.ProjectName
		dto.Task = r.Task
		dto.BillingType = string(r.BillingType)
		dto.HoursSpent = r.HoursSpent.Float64()
		return dto
	}
	dto.LeaveType = string(r.LeaveType)
	dto.Session = string(r.Session)
	dto.FromDate = dateString(r.FromDate)
	dto.ToDate = dateString(r.ToDate)
	dto.DayCount = r.LeavePeriod().Len()
	return dto
}

func toEntryDTOs(records []timesheet.Record) []EntryDTO {
	dtos := make([]EntryDTO, len(records))
	for i, r := range records {
		dtos[i] = toEntryDTO(r)
	}
	return dtos
}

func toStatusDTO(s timesheet.DailyStatus) StatusDTO {
	return StatusDTO{
		Date:            s.Date.String(),
		LeaveHours:      s.LeaveHours.Float64(),
		WorkHours:       s.WorkHours.Float64(),
		TotalHours:      s.TotalHours.Float64(),
		RemainingHours:  s.RemainingHours.Float64(),
		Capacity:        s.Capacity().Float64(),
		HasFullLeave:    s.HasFullLeave,
		HasPartialLeave: s.HasPartialLeave,
	}
}

func toRows(dtos []RowDTO) []timesheet.Row {
	rows := make([]timesheet.Row, len(dtos))
	for i, d := range dtos {
		rows[i] = timesheet.Row{
			Project:     d.Project,
			Task:        d.Task,
			BillingType: timesheet.ParseBillingType(d.BillingType),
			Description: d.Description,
			Hours:       generic.NewHours(d.Hours),
		}
	}
	return rows
}

func toRowDTOs(rows []timesheet.Row) []RowDTO {
	dtos := make([]RowDTO, len(rows))
	for i, r := range rows {
		dtos[i] = RowDTO{
			Project:     r.Project,
			Task:        r.Task,
			BillingType: string(r.BillingType),
			Description: r.Description,
			Hours:       r.Hours.Float64(),
		}
	}
	return dtos
}

func toRejectionDetails(rej *timesheet.RejectionError) RejectionDetails {
	d := RejectionDetails{Field: rej.Field, Row: rej.Row, Date: dateString(rej.Date)}
	if !rej.Hours.IsZero() {
		h := rej.Hours.Float64()
		d.Hours = &h
	}
	if rej.Code == timesheet.CodeExceedsDailyLimit {
		m := rej.MaxAllowed.Float64()
		d.MaxAllowed = &m
	}
	return d
}

// parseDate reads a required YYYY-MM-DD field.
func parseDate(field, s string) (generic.TimePoint, error) {
	d, err := generic.ParseISODate(s)
	if err != nil {
		return generic.TimePoint{}, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

// parseOptionalDate is parseDate that allows "".
func parseOptionalDate(field, s string) (generic.TimePoint, error) {
	if s == "" {
		return generic.TimePoint{}, nil
	}
	return parseDate(field, s)
}

func dateString(tp generic.TimePoint) string {
	if tp.IsZero() {
		return ""
	}
	return tp.String()
}
