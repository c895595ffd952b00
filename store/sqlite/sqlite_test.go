package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/warp/timesheet/generic"
	"github.com/warp/timesheet/timesheet"
)

const email = "dev@enoahisolution.com"

type captureMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *captureMailer) SendOTP(_ context.Context, email, code string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[email] = code
	return nil
}

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

func newTestStore(t *testing.T) (*Store, *captureMailer, *testClock) {
	t.Helper()
	mailer := &captureMailer{codes: map[string]string{}}
	clock := &testClock{t: time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC)}
	store, err := New(":memory:",
		WithMailer(mailer),
		WithClock(clock.now),
		WithOTPConfig(OTPConfig{HashCost: bcrypt.MinCost, MaxAttempts: 3}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, mailer, clock
}

func workSubmission(id string, d generic.TimePoint, h float64) timesheet.Submission {
	sub := timesheet.WorkSubmission{
		Email: email,
		Date:  d,
		Rows: []timesheet.Row{{
			Project: "Project 1", Task: "Build reports", BillingType: timesheet.Billable,
			Description: "Monthly numbers", Hours: generic.NewHours(h),
		}},
	}
	at := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
	return timesheet.Submission{ID: id, Type: timesheet.EntryWork, Email: email, Timestamp: at, Records: sub.Records(at)}
}

// =============================================================================
// ENTRIES
// =============================================================================

func TestSubmitAndFetch_RoundTripsWorkAndLeave(t *testing.T) {
	// GIVEN: A work submission and a leave submission
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	monday := generic.MustParseDate("2025-03-10")

	require.NoError(t, store.SubmitEntry(ctx, workSubmission("sub-1", monday, 7.5)))

	leave := timesheet.LeaveSubmission{
		Email: email, LeaveType: timesheet.LeaveSick, Session: timesheet.SessionFirstHalf,
		FromDate: monday.AddDays(1), ToDate: monday.AddDays(2), Description: "Flu recovery",
	}
	at := time.Date(2025, time.March, 14, 11, 0, 0, 0, time.UTC)
	require.NoError(t, store.SubmitEntry(ctx, timesheet.Submission{
		ID: "sub-2", Type: timesheet.EntryLeave, Email: email, Timestamp: at,
		Records: []timesheet.Record{leave.Record(at)},
	}))

	// WHEN: Fetching with a differently cased email
	records, err := store.FetchEntries(ctx, "DEV@enoahisolution.com")

	// THEN: Both rows come back with their fields intact
	require.NoError(t, err)
	require.Len(t, records, 2)

	work := records[0]
	assert.Equal(t, timesheet.EntryWork, work.Type)
	assert.Equal(t, "2025-03-10", work.Date.String())
	assert.Equal(t, "7.5", work.HoursSpent.String())
	assert.Equal(t, timesheet.Billable, work.BillingType)
	assert.Equal(t, "Monthly numbers", work.Description)

	lv := records[1]
	assert.Equal(t, timesheet.EntryLeave, lv.Type)
	assert.Equal(t, timesheet.SessionFirstHalf, lv.Session)
	assert.Equal(t, "2025-03-11", lv.FromDate.String())
	assert.Equal(t, "2025-03-12", lv.ToDate.String())
	assert.Equal(t, "2025-03-11", lv.Date.String())
	assert.True(t, lv.Timestamp.Equal(at))

	// AND: The rows drive the status calculator directly
	st := timesheet.ComputeStatus(monday.AddDays(1), records)
	assert.Equal(t, "4", st.LeaveHours.String())
}

func TestSubmitEntry_DuplicateIDWritesNothing(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	sub := workSubmission("sub-1", generic.MustParseDate("2025-03-10"), 8)

	require.NoError(t, store.SubmitEntry(ctx, sub))
	err := store.SubmitEntry(ctx, sub)

	assert.ErrorIs(t, err, generic.ErrDuplicateSubmission)
	records, err := store.FetchEntries(ctx, email)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	n, err := store.SubmissionCount(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFetchEntries_OtherUsersHidden(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SubmitEntry(ctx, workSubmission("sub-1", generic.MustParseDate("2025-03-10"), 8)))

	records, err := store.FetchEntries(ctx, "other@enoahisolution.com")

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestImportRecords(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	sub := workSubmission("ignored", generic.MustParseDate("2025-03-10"), 4)

	n, err := store.ImportRecords(ctx, append(sub.Records, sub.Records...))

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	all, err := store.AllEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// =============================================================================
// OTP
// =============================================================================

func TestOTP_SendAndVerify(t *testing.T) {
	store, mailer, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SendOTP(ctx, email))
	code := mailer.codes[email]
	require.Len(t, code, 6)

	require.NoError(t, store.VerifyOTP(ctx, email, code))

	// A code works once.
	err := store.VerifyOTP(ctx, email, code)
	assert.ErrorIs(t, err, ErrOTPNotRequested)
}

func TestOTP_WrongCodeCountsAttempts(t *testing.T) {
	store, mailer, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SendOTP(ctx, email))
	wrong := "000000"
	if mailer.codes[email] == wrong {
		wrong = "111111"
	}

	for i := 0; i < 3; i++ {
		err := store.VerifyOTP(ctx, email, wrong)
		require.ErrorIs(t, err, ErrOTPInvalid)
		assert.Equal(t, "Invalid OTP. Please try again.", timesheet.UserMessage(err, ""))
	}

	// The right code no longer helps after MaxAttempts failures.
	err := store.VerifyOTP(ctx, email, mailer.codes[email])
	assert.ErrorIs(t, err, ErrOTPAttempts)
}

func TestOTP_Expired(t *testing.T) {
	store, mailer, clock := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SendOTP(ctx, email))

	clock.t = clock.t.Add(11 * time.Minute)
	err := store.VerifyOTP(ctx, email, mailer.codes[email])

	assert.ErrorIs(t, err, ErrOTPExpired)
	assert.True(t, timesheet.IsRemote(err))
}

func TestOTP_ResendCooldown(t *testing.T) {
	store, mailer, clock := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SendOTP(ctx, email))
	first := mailer.codes[email]

	clock.t = clock.t.Add(20 * time.Second)
	err := store.SendOTP(ctx, email)
	require.ErrorIs(t, err, ErrOTPCooldown)
	assert.Equal(t, "Please wait 40 seconds before requesting a new OTP.", timesheet.UserMessage(err, ""))
	assert.Equal(t, first, mailer.codes[email])

	clock.t = clock.t.Add(41 * time.Second)
	require.NoError(t, store.SendOTP(ctx, email))
}

// =============================================================================
// DRAFTS AND HOLIDAYS
// =============================================================================

func TestDrafts(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.LoadDraft(ctx, email)
	require.NoError(t, err)
	assert.False(t, ok)

	saved := timesheet.Draft{
		Date:    generic.MustParseDate("2025-03-10"),
		Rows:    []timesheet.Row{{Project: "UW Platform", Task: "Triage", BillingType: timesheet.NonBillable, Hours: generic.NewHours(2.5)}},
		SavedAt: time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveDraft(ctx, email, saved))

	d, ok, err := store.LoadDraft(ctx, email)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2025-03-10", d.Date.String())
	require.Len(t, d.Rows, 1)
	assert.Equal(t, "2.5", d.Rows[0].Hours.String())
	assert.Equal(t, timesheet.NonBillable, d.Rows[0].BillingType)
	assert.True(t, d.SavedAt.Equal(saved.SavedAt))

	require.NoError(t, store.ClearDraft(ctx, email))
	_, ok, err = store.LoadDraft(ctx, email)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHolidays(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveHoliday(ctx, generic.Holiday{Date: generic.MustParseDate("2025-01-26"), Name: "Republic Day", Recurring: true}))
	require.NoError(t, store.SaveHoliday(ctx, generic.Holiday{Date: generic.MustParseDate("2025-03-14"), Name: "Holi"}))

	h, ok := store.IsHoliday(generic.MustParseDate("2026-01-26"))
	assert.True(t, ok)
	assert.Equal(t, "Republic Day", h.Name)

	_, ok = store.IsHoliday(generic.MustParseDate("2025-03-14"))
	assert.True(t, ok)
	_, ok = store.IsHoliday(generic.MustParseDate("2026-03-14"))
	assert.False(t, ok)

	all, err := store.AllHolidays(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, store.DeleteHoliday(ctx, generic.MustParseDate("2025-03-14"), "Holi"))
	_, ok = store.IsHoliday(generic.MustParseDate("2025-03-14"))
	assert.False(t, ok)
}
