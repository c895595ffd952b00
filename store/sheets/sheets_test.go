package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timesheet/generic"
	"github.com/warp/timesheet/timesheet"
)

const email = "dev@enoahisolution.com"

// fakeScript records POST bodies and answers with a canned response.
type fakeScript struct {
	contentType string
	posted      map[string]any
	query       map[string]string
	status      int
	reply       string
}

func (f *fakeScript) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		f.contentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		f.posted = map[string]any{}
		_ = json.Unmarshal(body, &f.posted)
	case http.MethodGet:
		f.query = map[string]string{}
		for k := range r.URL.Query() {
			f.query[k] = r.URL.Query().Get(k)
		}
	}
	if f.status != 0 {
		w.WriteHeader(f.status)
	}
	_, _ = io.WriteString(w, f.reply)
}

func newTestClient(t *testing.T, script *fakeScript, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(script)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/exec", opts...)
	require.NoError(t, err)
	return c
}

func TestNew_RejectsNonHTTPURL(t *testing.T) {
	_, err := New("ftp://example.com/exec")
	assert.Error(t, err)
}

// =============================================================================
// OTP
// =============================================================================

func TestSendOTP_PostsPlainTextAction(t *testing.T) {
	script := &fakeScript{reply: `{"success": true}`}
	c := newTestClient(t, script)

	err := c.SendOTP(context.Background(), email)

	require.NoError(t, err)
	assert.Equal(t, "text/plain", script.contentType)
	assert.Equal(t, "sendOTP", script.posted["action"])
	assert.Equal(t, email, script.posted["email"])
}

func TestVerifyOTP_ServerErrorMessageSurfaces(t *testing.T) {
	// GIVEN: The script rejects the code with its own message
	script := &fakeScript{reply: `{"success": false, "error": "OTP expired. Please request a new one."}`}
	c := newTestClient(t, script)

	// WHEN: Verifying
	err := c.VerifyOTP(context.Background(), email, "123456")

	// THEN: The message reaches the user unchanged
	require.Error(t, err)
	assert.True(t, timesheet.IsRemote(err))
	assert.Equal(t, "OTP expired. Please request a new one.", timesheet.UserMessage(err, "fallback"))
	assert.Equal(t, "verifyOTP", script.posted["action"])
	assert.Equal(t, "123456", script.posted["otp"])
}

func TestVerifyOTP_FailureWithoutMessageUsesFallback(t *testing.T) {
	script := &fakeScript{reply: `{"success": false}`}
	c := newTestClient(t, script)

	err := c.VerifyOTP(context.Background(), email, "123456")

	assert.Equal(t, "Invalid OTP", timesheet.UserMessage(err, ""))
}

func TestPost_HTTPErrorIsRemoteError(t *testing.T) {
	script := &fakeScript{status: http.StatusInternalServerError, reply: "boom"}
	c := newTestClient(t, script)

	err := c.SendOTP(context.Background(), email)

	require.Error(t, err)
	assert.True(t, timesheet.IsRemote(err))
	assert.Equal(t, "Failed to send OTP. Please try again.", timesheet.UserMessage(err, ""))
	assert.Contains(t, err.Error(), "500")
}

// =============================================================================
// SUBMIT
// =============================================================================

func TestSubmitEntry_WorkBatchPayload(t *testing.T) {
	// GIVEN: A two-row work submission
	script := &fakeScript{reply: `{"success": true}`}
	c := newTestClient(t, script)
	at := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
	ws := timesheet.WorkSubmission{
		Email: email,
		Date:  generic.MustParseDate("2025-03-10"),
		Rows: []timesheet.Row{
			{Project: "Project 1", Task: "Build reports", BillingType: timesheet.Billable, Hours: generic.NewHours(5.5)},
			{Project: "Project 2", Task: "Code review", BillingType: timesheet.NonBillable, Hours: generic.NewHours(2.5)},
		},
	}
	sub := timesheet.Submission{ID: "sub-1", Type: timesheet.EntryWork, Email: email, Timestamp: at, Records: ws.Records(at)}

	// WHEN: Submitting
	require.NoError(t, c.SubmitEntry(context.Background(), sub))

	// THEN: One submitEntry call carries the date and every row
	assert.Equal(t, "submitEntry", script.posted["action"])
	data, ok := script.posted["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Work", data[ColEntryType])
	assert.Equal(t, "2025-03-10", data[ColDate])
	assert.Equal(t, email, data[ColEmail])
	assert.Equal(t, "sub-1", data["Submission ID"])

	rows, ok := data["timesheetRows"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 2)
	first := rows[0].(map[string]any)
	assert.Equal(t, "Project 1", first["project"])
	assert.Equal(t, "Billable", first["billingType"])
	assert.Equal(t, 5.5, first["hours"])
}

func TestSubmitEntry_LeavePayload(t *testing.T) {
	script := &fakeScript{reply: `{"success": true}`}
	c := newTestClient(t, script)
	at := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
	leave := timesheet.LeaveSubmission{
		Email: email, LeaveType: timesheet.LeaveCasual, Session: timesheet.SessionFullDay,
		FromDate: generic.MustParseDate("2025-03-17"), ToDate: generic.MustParseDate("2025-03-18"),
		Description: "Family function",
	}
	sub := timesheet.Submission{ID: "sub-2", Type: timesheet.EntryLeave, Email: email, Timestamp: at,
		Records: []timesheet.Record{leave.Record(at)}}

	require.NoError(t, c.SubmitEntry(context.Background(), sub))

	data := script.posted["data"].(map[string]any)
	assert.Equal(t, "Leave", data[ColEntryType])
	assert.Equal(t, "2025-03-17", data[ColDate])
	assert.Equal(t, "Casual Leave", data[ColLeaveType])
	assert.Equal(t, "Full Day", data[ColSession])
	assert.Equal(t, "2025-03-17", data[ColFromDate])
	assert.Equal(t, "2025-03-18", data[ColToDate])
	assert.Equal(t, "Family function", data[ColDescription])
	assert.NotContains(t, data, "timesheetRows")
}

func TestSubmitEntry_EmptySubmissionNotSent(t *testing.T) {
	script := &fakeScript{reply: `{"success": true}`}
	c := newTestClient(t, script)

	err := c.SubmitEntry(context.Background(), timesheet.Submission{ID: "x", Type: timesheet.EntryWork})

	assert.Error(t, err)
	assert.Nil(t, script.posted)
}

// =============================================================================
// FETCH
// =============================================================================

func TestFetchEntries_MapsSheetColumns(t *testing.T) {
	// GIVEN: A sheet in IST returning dates as UTC instants, numeric hours
	// and one row with no entry type
	script := &fakeScript{reply: `{"entries": [
		{"Timestamp": "3/10/2025, 6:15:00 PM", "Email Address": "Dev@enoahisolution.com",
		 "Entry Type": "Work", "Date": "2025-03-09T18:30:00.000Z", "Project Name": "Project 1",
		 "Task": "Build reports", "Billing Type": "Billable", "Hours Spent": 5.5,
		 "Work Description": "Monthly numbers"},
		{"Timestamp": "2025-03-11T04:00:00Z", "Email Address": "dev@enoahisolution.com",
		 "Entry Type": "Leave", "Date": "2025-03-12", "Leave Type": "Sick Leave",
		 "Session": "First Half", "From Date": "2025-03-12", "To Date": "2025-03-13",
		 "Description": "Fever"},
		{"Entry Type": "", "Date": "2025-03-12"}
	]}`}
	ist := time.FixedZone("IST", 5*3600+1800)
	c := newTestClient(t, script, WithLocation(ist))

	// WHEN: Fetching
	records, err := c.FetchEntries(context.Background(), email)

	// THEN: The query names the action and user
	require.NoError(t, err)
	assert.Equal(t, "getEntries", script.query["action"])
	assert.Equal(t, email, script.query["email"])

	// AND: Unknown rows are dropped, the rest map onto records
	require.Len(t, records, 2)

	work := records[0]
	assert.Equal(t, timesheet.EntryWork, work.Type)
	assert.Equal(t, email, work.Email)
	assert.Equal(t, "2025-03-10", work.Date.String())
	assert.Equal(t, "5.5", work.HoursSpent.String())
	assert.Equal(t, timesheet.Billable, work.BillingType)
	assert.Equal(t, "Monthly numbers", work.Description)
	assert.Equal(t, 18, work.Timestamp.Hour())

	leave := records[1]
	assert.Equal(t, timesheet.EntryLeave, leave.Type)
	assert.Equal(t, timesheet.LeaveSick, leave.LeaveType)
	assert.Equal(t, timesheet.SessionFirstHalf, leave.Session)
	assert.Equal(t, "2025-03-12", leave.FromDate.String())
	assert.Equal(t, "2025-03-13", leave.ToDate.String())

	// AND: The records feed the status calculator directly
	st := timesheet.ComputeStatus(generic.MustParseDate("2025-03-13"), records)
	assert.Equal(t, "4", st.LeaveHours.String())
}

func TestFetchEntries_MissingEntriesIsEmpty(t *testing.T) {
	script := &fakeScript{reply: `{}`}
	c := newTestClient(t, script)

	records, err := c.FetchEntries(context.Background(), email)

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetchEntries_BadBodyIsRemoteError(t *testing.T) {
	script := &fakeScript{reply: `<html>Sign in</html>`}
	c := newTestClient(t, script)

	_, err := c.FetchEntries(context.Background(), email)

	require.Error(t, err)
	assert.True(t, timesheet.IsRemote(err))
}

func TestDecoder_LeaveWithoutRangeUsesDate(t *testing.T) {
	rec, ok := Decoder{}.Record(map[string]string{
		ColEntryType: "leave",
		ColDate:      "2025-03-12",
		ColSession:   "Full Day",
	})

	require.True(t, ok)
	assert.Equal(t, "2025-03-12", rec.FromDate.String())
	assert.Equal(t, "2025-03-12", rec.ToDate.String())
}

func TestCells_RoundTripThroughDecoder(t *testing.T) {
	at := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
	leave := timesheet.LeaveSubmission{
		Email: email, LeaveType: timesheet.LeaveEarned, Session: timesheet.SessionSecondHalf,
		FromDate: generic.MustParseDate("2025-03-17"), ToDate: generic.MustParseDate("2025-03-19"),
		Description: "Trip",
	}.Record(at)

	cells := Cells(leave)
	assert.Equal(t, "3", cells[ColDayCount])

	back, ok := Decoder{}.Record(cells)
	require.True(t, ok)
	assert.Equal(t, leave.LeaveType, back.LeaveType)
	assert.Equal(t, leave.Session, back.Session)
	assert.True(t, back.FromDate.Equal(leave.FromDate))
	assert.True(t, back.ToDate.Equal(leave.ToDate))
	assert.True(t, back.Timestamp.Equal(at))
}
