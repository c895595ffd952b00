package timesheet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timesheet/timesheet"
)

func leaveCandidate(from, to string, session timesheet.Session) timesheet.LeaveSubmission {
	return timesheet.LeaveSubmission{
		Email:       testEmail,
		LeaveType:   timesheet.LeaveSick,
		Session:     session,
		FromDate:    date(from),
		ToDate:      date(to),
		Description: "Feeling unwell",
	}
}

func TestValidateLeave_NoConflicts(t *testing.T) {
	entries := []timesheet.Record{
		workOn(date("2025-03-07"), 8),
		leaveOn(date("2025-03-17"), date("2025-03-18"), timesheet.SessionFullDay),
	}

	err := timesheet.ValidateLeaveSubmission(leaveCandidate("2025-03-10", "2025-03-14", timesheet.SessionFullDay), entries)

	assert.NoError(t, err)
}

func TestValidateLeave_EarlierLeaveReachingIntoRange(t *testing.T) {
	// GIVEN: A leave that started the week before and runs into Monday, plus
	// entries far outside the requested range
	entries := []timesheet.Record{
		leaveOn(date("2025-03-05"), monday, timesheet.SessionFullDay),
		workOn(date("2024-01-02"), 8),
		workOn(date("2026-01-02"), 8),
	}

	// WHEN: Applying leave for Monday and Tuesday
	err := timesheet.ValidateLeaveSubmission(leaveCandidate("2025-03-10", "2025-03-11", timesheet.SessionFullDay), entries)

	// THEN: The earlier leave is found by its range, not its start date
	require.ErrorIs(t, err, timesheet.ErrLeaveOverlap)
	rej, _ := timesheet.AsRejection(err)
	assert.Equal(t, "2025-03-10", rej.Date.String())

	// AND: The far-off work alone never conflicts
	assert.NoError(t, timesheet.ValidateLeaveSubmission(leaveCandidate("2025-03-12", "2025-03-14", timesheet.SessionFullDay), entries))
}

func TestValidateLeave_WorkConflictCitesDateAndHours(t *testing.T) {
	// GIVEN: 2 hours of work recorded on Wednesday
	entries := []timesheet.Record{workOn(date("2025-03-12"), 2)}

	// WHEN: Applying leave Monday to Friday
	err := timesheet.ValidateLeaveSubmission(leaveCandidate("2025-03-10", "2025-03-14", timesheet.SessionFullDay), entries)

	// THEN: Rejected, citing Wednesday and the 2 hours
	require.ErrorIs(t, err, timesheet.ErrWorkConflict)
	rej, _ := timesheet.AsRejection(err)
	assert.Equal(t, "2025-03-12", rej.Date.String())
	assert.Equal(t, "2", rej.Hours.String())
	assert.Equal(t,
		"Cannot apply leave. You have already submitted 2 hours of work for 2025-03-12. Please contact admin to modify.",
		rej.Message)
}

func TestValidateLeave_FirstConflictingDayWins(t *testing.T) {
	entries := []timesheet.Record{
		workOn(date("2025-03-13"), 3),
		leaveOn(date("2025-03-11"), date("2025-03-11"), timesheet.SessionFirstHalf),
	}

	err := timesheet.ValidateLeaveSubmission(leaveCandidate("2025-03-10", "2025-03-14", timesheet.SessionFullDay), entries)

	// Tuesday's leave comes before Thursday's work.
	require.ErrorIs(t, err, timesheet.ErrLeaveOverlap)
	rej, _ := timesheet.AsRejection(err)
	assert.Equal(t, "2025-03-11", rej.Date.String())
}

func TestValidateLeave_WorkCheckedBeforeLeaveOnSameDay(t *testing.T) {
	entries := []timesheet.Record{
		workOn(monday, 4),
		leaveOn(monday, monday, timesheet.SessionSecondHalf),
	}

	err := timesheet.ValidateLeaveSubmission(leaveCandidate("2025-03-10", "2025-03-10", timesheet.SessionFirstHalf), entries)

	assert.ErrorIs(t, err, timesheet.ErrWorkConflict)
}

func TestValidateLeave_PartialOverlapRejected(t *testing.T) {
	// GIVEN: A half-day leave already recorded on the candidate's last day
	entries := []timesheet.Record{leaveOn(date("2025-03-14"), date("2025-03-14"), timesheet.SessionSecondHalf)}

	// WHEN: Applying another half day on that date
	err := timesheet.ValidateLeaveSubmission(leaveCandidate("2025-03-14", "2025-03-14", timesheet.SessionFirstHalf), entries)

	// THEN: Any existing leave is an overlap
	require.ErrorIs(t, err, timesheet.ErrLeaveOverlap)
	assert.Equal(t,
		"Leave already applied for overlapping dates. Please check your existing leave entries.",
		err.Error())
}

func TestValidateLeave_ZeroHourWorkIsNotAConflict(t *testing.T) {
	entries := []timesheet.Record{workOn(monday, 0)}

	err := timesheet.ValidateLeaveSubmission(leaveCandidate("2025-03-10", "2025-03-10", timesheet.SessionFullDay), entries)

	assert.NoError(t, err)
}

func TestValidateLeave_InvertedRange(t *testing.T) {
	err := timesheet.ValidateLeaveSubmission(leaveCandidate("2025-03-12", "2025-03-10", timesheet.SessionFullDay), nil)

	require.ErrorIs(t, err, timesheet.ErrInvalidField)
	rej, _ := timesheet.AsRejection(err)
	assert.Equal(t, "toDate", rej.Field)
}
