// Package memory provides an in-memory timesheet.Remote and DraftStore.
package memory

import (
	"context"
	"sync"

	"github.com/warp/timesheet/generic"
	"github.com/warp/timesheet/timesheet"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Store keeps records per user. Failures can be injected per operation to
// exercise the orchestrator's error paths.
type Store struct {
	mu          sync.RWMutex
	records     map[string][]timesheet.Record
	drafts      map[string]timesheet.Draft
	submissions map[string]bool
	otps        map[string]string

	// Injected failures, returned by the next call of each operation.
	FetchErr  error
	SubmitErr error
	OTPErr    error

	// Counters for asserting call counts in tests.
	FetchCalls  int
	SubmitCalls int

	// OnSubmit, when set, runs inside SubmitEntry before the write.
	OnSubmit func(timesheet.Submission)
}

func New() *Store {
	return &Store{
		records:     make(map[string][]timesheet.Record),
		drafts:      make(map[string]timesheet.Draft),
		submissions: make(map[string]bool),
		otps:        make(map[string]string),
	}
}

// Seed stores records directly, skipping validation.
func (m *Store) Seed(records ...timesheet.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		email := timesheet.NormalizeEmail(r.Email)
		m.records[email] = append(m.records[email], r)
	}
}

// SetOTP fixes the code VerifyOTP accepts for email.
func (m *Store) SetOTP(email, otp string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.otps[timesheet.NormalizeEmail(email)] = otp
}

func (m *Store) SendOTP(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.OTPErr; err != nil {
		return err
	}
	if _, ok := m.otps[email]; !ok {
		m.otps[email] = "123456"
	}
	return nil
}

func (m *Store) VerifyOTP(_ context.Context, email, otp string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.OTPErr; err != nil {
		return err
	}
	if want, ok := m.otps[email]; !ok || want != otp {
		return &timesheet.RemoteError{Op: "verifyOTP", Message: "Invalid OTP"}
	}
	return nil
}

// SubmitEntry is idempotent on the submission ID.
func (m *Store) SubmitEntry(ctx context.Context, sub timesheet.Submission) error {
	if m.OnSubmit != nil {
		m.OnSubmit(sub)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SubmitCalls++
	if err := m.SubmitErr; err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.submissions[sub.ID] {
		return generic.ErrDuplicateSubmission
	}
	m.submissions[sub.ID] = true
	m.records[sub.Email] = append(m.records[sub.Email], sub.Records...)
	return nil
}

func (m *Store) FetchEntries(ctx context.Context, email string) ([]timesheet.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchCalls++
	if err := m.FetchErr; err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]timesheet.Record(nil), m.records[email]...), nil
}

func (m *Store) LoadDraft(_ context.Context, email string) (timesheet.Draft, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drafts[email]
	return d, ok, nil
}

func (m *Store) SaveDraft(_ context.Context, email string, d timesheet.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.Rows = append([]timesheet.Row(nil), d.Rows...)
	m.drafts[email] = d
	return nil
}

func (m *Store) ClearDraft(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, email)
	return nil
}

var (
	_ timesheet.Remote     = (*Store)(nil)
	_ timesheet.DraftStore = (*Store)(nil)
)
