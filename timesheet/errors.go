package timesheet

import (
	"errors"
	"fmt"

	"github.com/warp/timesheet/generic"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrFullLeave: a full-day leave already covers the work date.
	ErrFullLeave = errors.New("leave already covers this day")

	// ErrNoRows: a work submission without rows.
	ErrNoRows = errors.New("no rows")

	// ErrHoursNotExact: existing plus new hours do not equal the full day.
	ErrHoursNotExact = errors.New("daily total must be exactly 8 hours")

	// ErrExceedsDailyLimit: a row edit would push the day past the full day.
	ErrExceedsDailyLimit = errors.New("exceeds daily hours limit")

	// ErrWorkConflict: leave requested over a day with recorded work.
	ErrWorkConflict = errors.New("work already recorded on leave date")

	// ErrLeaveOverlap: leave requested over a day already covered by leave.
	ErrLeaveOverlap = errors.New("overlapping leave already exists")

	// ErrInvalidField: a required field is missing or malformed.
	ErrInvalidField = errors.New("invalid field")

	// ErrDuplicateEntry: a row repeats an existing date/project/task.
	ErrDuplicateEntry = errors.New("duplicate entry")

	// ErrEntriesUnavailable: the pre-validation refresh failed.
	ErrEntriesUnavailable = errors.New("entries unavailable")

	// ErrSubmissionInFlight: another attempt for the same user is running.
	ErrSubmissionInFlight = errors.New("submission already in progress")

	// ErrIllegalTransition: an event that the current state does not accept.
	ErrIllegalTransition = errors.New("illegal state transition")
)

// =============================================================================
// REJECTION - Recoverable input rejection with a user-facing message
// =============================================================================

type RejectCode string

const (
	CodeFullLeave          RejectCode = "full_leave"
	CodeNoRows             RejectCode = "no_rows"
	CodeHoursNotExact      RejectCode = "hours_not_exact"
	CodeExceedsDailyLimit  RejectCode = "exceeds_daily_limit"
	CodeWorkConflict       RejectCode = "work_conflict"
	CodeLeaveOverlap       RejectCode = "leave_overlap"
	CodeInvalidField       RejectCode = "invalid_field"
	CodeDuplicateEntry     RejectCode = "duplicate_entry"
	CodeEntriesUnavailable RejectCode = "entries_unavailable"
	CodeInFlight           RejectCode = "in_flight"
)

var codeSentinels = map[RejectCode]error{
	CodeFullLeave:          ErrFullLeave,
	CodeNoRows:             ErrNoRows,
	CodeHoursNotExact:      ErrHoursNotExact,
	CodeExceedsDailyLimit:  ErrExceedsDailyLimit,
	CodeWorkConflict:       ErrWorkConflict,
	CodeLeaveOverlap:       ErrLeaveOverlap,
	CodeInvalidField:       ErrInvalidField,
	CodeDuplicateEntry:     ErrDuplicateEntry,
	CodeEntriesUnavailable: ErrEntriesUnavailable,
	CodeInFlight:           ErrSubmissionInFlight,
}

// RejectionError explains why an edit or submission was refused.
// Message is shown to the user as is.
type RejectionError struct {
	Code    RejectCode
	Message string

	Field string            // offending form field, if any
	Row   int               // 1-based row number, 0 when not row-specific
	Date  generic.TimePoint // offending day, if any

	// Hours is the amount the message cites: conflicting work hours,
	// the excess over the full day, or the hours still needed.
	Hours generic.Amount

	// MaxAllowed is the capacity left on a rejected row edit.
	MaxAllowed generic.Amount
}

func (e *RejectionError) Error() string { return e.Message }

func (e *RejectionError) Unwrap() error { return codeSentinels[e.Code] }

func reject(code RejectCode, format string, args ...any) *RejectionError {
	return &RejectionError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func invalidField(field, format string, args ...any) *RejectionError {
	e := reject(CodeInvalidField, format, args...)
	e.Field = field
	return e
}

// AsRejection unwraps a RejectionError, if err carries one.
func AsRejection(err error) (*RejectionError, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// =============================================================================
// REMOTE FAILURE - Recoverable by retry, nothing committed
// =============================================================================

// RemoteError is a failure reported by, or while talking to, the remote store.
// Message is the server-provided text when there is one.
type RemoteError struct {
	Op      string
	Message string
	Err     error
}

// Error includes Message and the underlying cause, whichever are set.
func (e *RemoteError) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Message == "":
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// IsRemote reports whether err came from the remote store.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// UserMessage picks the text to show for an error: the rejection or server
// message when there is one, otherwise fallback.
func UserMessage(err error, fallback string) string {
	if rej, ok := AsRejection(err); ok {
		return rej.Message
	}
	var re *RemoteError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return fallback
}
