/*
session.go - Per-user submission orchestration

PURPOSE:
  A UserSession owns one user's entry cache and drives every submission
  attempt through the state machine in state.go:

    1. Refreshing - re-fetch the user's records, replacing the cache
    2. Validating - field rules, then CanSubmit or ValidateLeaveSubmission
    3. Submitting - exactly one SubmitEntry call to the remote store

  On success the submitted records are prepended to the cache, so the next
  status computation sees them without another fetch.

CONCURRENCY:
  One attempt per user at a time. A second attempt while one is running is
  rejected with ErrSubmissionInFlight instead of queueing, and the lock is
  held from refresh to store so two attempts can never both see a day
  below the limit.

FETCH FAILURES:
  A failed refresh rejects the attempt with ErrEntriesUnavailable.
  Options.FailOpenFetch treats the failure as "no entries" instead.

SEE ALSO:
  - state.go: Transition
  - reconcile.go, conflict.go, fields.go: the checks run while Validating
*/
package timesheet

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/timesheet/generic"
)

// DefaultRequestTimeout bounds every remote call.
const DefaultRequestTimeout = 15 * time.Second

type Options struct {
	RequestTimeout time.Duration
	FailOpenFetch  bool

	// OTPEnabled requires a verified one-time passcode before a session is
	// opened. When false, any allowed email may sign in.
	OTPEnabled bool

	Drafts DraftStore
	Logger *slog.Logger
	Now    func() time.Time
	NewID  func() string
}

func (o Options) withDefaults() Options {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o
}

func (o Options) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.RequestTimeout)
}

// Outcome is the result of one submission attempt. State is the terminal
// state the attempt reached; the session itself is back to idle.
type Outcome struct {
	State      State
	Submission Submission
	Warnings   []string

	// Status is the day after a work submission, taken from the updated cache.
	Status *DailyStatus
}

// =============================================================================
// SESSION
// =============================================================================

type UserSession struct {
	email  string
	remote Remote
	rules  Rules
	opts   Options
	log    *slog.Logger

	attempt sync.Mutex // held for a whole submission attempt

	mu        sync.RWMutex
	entries   []Record
	version   uint64 // bumped on every cache change
	state     State
	fetchedAt time.Time
}

func NewUserSession(email string, remote Remote, rules Rules, opts Options) *UserSession {
	opts = opts.withDefaults()
	if rules.Now == nil {
		rules.Now = opts.Now
	}
	email = NormalizeEmail(email)
	return &UserSession{
		email:  email,
		remote: remote,
		rules:  rules,
		opts:   opts,
		log:    opts.Logger.With("email", email),
		state:  StateIdle,
	}
}

func (s *UserSession) Email() string { return s.email }

// Rules are the field rules applied to this user's submissions.
func (s *UserSession) Rules() Rules { return s.rules }

func (s *UserSession) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// FetchedAt is when the cache was last replaced; zero before the first fetch.
func (s *UserSession) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

func (s *UserSession) step(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := Transition(s.state, e)
	if err != nil {
		s.log.Error("state machine", "error", err)
		return
	}
	s.log.Debug("submission state", "from", s.state, "event", e, "to", next)
	s.state = next
}

// =============================================================================
// CACHE
// =============================================================================

func (s *UserSession) fetch(ctx context.Context) ([]Record, error) {
	ctx, cancel := s.opts.withTimeout(ctx)
	defer cancel()
	entries, err := s.remote.FetchEntries(ctx, s.email)
	if err != nil {
		return nil, asRemote("fetchEntries", err)
	}
	return entries, nil
}

func (s *UserSession) cacheVersion() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *UserSession) replace(entries []Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
	s.version++
	s.fetchedAt = s.opts.Now()
}

// replaceIfUnchanged installs entries fetched when the cache was at seen.
// A submission that landed meanwhile has a newer cache, which is kept.
func (s *UserSession) replaceIfUnchanged(entries []Record, seen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != seen {
		return false
	}
	s.entries = entries
	s.version++
	s.fetchedAt = s.opts.Now()
	return true
}

// Refresh replaces the cache with the user's current records. With
// FailOpenFetch a failure empties the cache and is not reported.
func (s *UserSession) Refresh(ctx context.Context) error {
	seen := s.cacheVersion()
	entries, err := s.fetch(ctx)
	if err != nil {
		s.log.Warn("fetch entries failed", "error", err, "fail_open", s.opts.FailOpenFetch)
		if !s.opts.FailOpenFetch {
			return err
		}
		entries = nil
	}
	if !s.replaceIfUnchanged(entries, seen) {
		s.log.Debug("cache changed during fetch, keeping it")
	}
	return nil
}

func (s *UserSession) snapshot() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record(nil), s.entries...)
}

// Entries lists cached records, newest first. An empty typ lists all.
func (s *UserSession) Entries(typ EntryType) []Record {
	all := s.snapshot()
	out := all[:0]
	for _, e := range all {
		if typ == "" || e.Type == typ {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Status computes the day from the cache without fetching.
func (s *UserSession) Status(date generic.TimePoint) DailyStatus {
	return ComputeStatus(date, s.snapshot())
}

// =============================================================================
// LIVE CHECKS - Cache only, no refresh
// =============================================================================

func (s *UserSession) CheckRowEdit(date generic.TimePoint, rowIndex int, proposed generic.Amount, rows []Row) (generic.Amount, error) {
	return ValidateRowEdit(rowIndex, proposed, rows, s.Status(date))
}

func (s *UserSession) CheckWork(date generic.TimePoint, rows []Row) error {
	return CanSubmit(rows, s.Status(date))
}

// DateAdvisory tells the form what a newly selected day allows.
type DateAdvisory struct {
	Status     DailyStatus
	CanAddRows bool
	Message    string
	Warnings   []string

	// Stale is set when the refresh failed and the advisory used the
	// previous cache.
	Stale bool
}

// SelectDate refreshes the cache and describes the chosen day. A refresh
// failure never blocks the form; the advisory is computed from the old
// cache and marked Stale.
func (s *UserSession) SelectDate(ctx context.Context, date generic.TimePoint) DateAdvisory {
	stale := false
	seen := s.cacheVersion()
	if entries, err := s.fetch(ctx); err != nil {
		s.log.Warn("fetch entries on date change failed", "date", date, "error", err)
		stale = true
	} else {
		s.replaceIfUnchanged(entries, seen)
	}

	status := s.Status(date)
	adv := DateAdvisory{
		Status:     status,
		CanAddRows: !status.HasFullLeave,
		Warnings:   s.rules.Warnings(date),
		Stale:      stale,
	}
	switch {
	case status.HasFullLeave:
		adv.Message = "Leave already applied for this date. Timesheet submission is not allowed."
	case status.HasPartialLeave:
		adv.Message = "You have already applied " + status.LeaveHours.String() +
			" hours leave. You can submit only " + status.Capacity().String() + " hours timesheet."
	case status.WorkHours.IsPositive():
		adv.Message = "You have already logged " + status.WorkHours.String() +
			" hours for this date. You can add " + status.Capacity().String() + " more hours."
	}
	return adv
}

// =============================================================================
// SUBMISSION
// =============================================================================

type attempt struct {
	typ EntryType

	// days lists the affected days for warnings. Only called once the
	// attempt has passed validation, so the range is bounded.
	days     func() []generic.TimePoint
	validate func(entries []Record) error
	records  func(at time.Time) []Record
}

// SubmitWork runs one work submission attempt.
func (s *UserSession) SubmitWork(ctx context.Context, sub WorkSubmission) (Outcome, error) {
	sub.Email = s.email
	out, err := s.run(ctx, attempt{
		typ:  EntryWork,
		days: func() []generic.TimePoint { return []generic.TimePoint{sub.Date} },
		validate: func(entries []Record) error {
			if err := s.rules.ValidateWorkDate(sub.Date); err != nil {
				return err
			}
			if err := CanSubmit(sub.Rows, ComputeStatus(sub.Date, entries)); err != nil {
				return err
			}
			if err := s.rules.ValidateRows(sub.Rows); err != nil {
				return err
			}
			return s.rules.CheckDuplicates(sub, entries)
		},
		records: sub.Records,
	})
	if out.State == StateSubmitted {
		status := s.Status(sub.Date)
		out.Status = &status
		s.clearDraftFor(ctx, sub.Date)
	}
	return out, err
}

// SubmitLeave runs one leave submission attempt.
func (s *UserSession) SubmitLeave(ctx context.Context, sub LeaveSubmission) (Outcome, error) {
	sub.Email = s.email
	return s.run(ctx, attempt{
		typ:  EntryLeave,
		days: sub.Period().Days,
		validate: func(entries []Record) error {
			if err := s.rules.ValidateLeave(sub); err != nil {
				return err
			}
			return ValidateLeaveSubmission(sub, entries)
		},
		records: func(at time.Time) []Record { return []Record{sub.Record(at)} },
	})
}

func (s *UserSession) run(ctx context.Context, a attempt) (Outcome, error) {
	if !s.attempt.TryLock() {
		return Outcome{State: StateRejected}, reject(CodeInFlight, "A submission is already in progress. Please wait.")
	}
	defer s.attempt.Unlock()
	defer s.step(EventAcknowledge)

	s.step(EventSubmit)

	entries, err := s.fetch(ctx)
	if err != nil {
		if !s.opts.FailOpenFetch {
			s.log.Warn("refresh before submit failed", "type", a.typ, "error", err)
			s.step(EventRefreshFailed)
			return Outcome{State: StateRejected},
				reject(CodeEntriesUnavailable, "Could not load your existing entries. Please try again.")
		}
		s.log.Warn("refresh before submit failed, continuing with no entries", "type", a.typ, "error", err)
		entries = nil
	}
	s.replace(entries)
	s.step(EventRefreshed)

	if err := a.validate(entries); err != nil {
		if rej, ok := AsRejection(err); ok {
			s.log.Info("submission rejected", "type", a.typ, "code", rej.Code, "date", rej.Date, "reason", rej.Message)
		}
		s.step(EventInvalid)
		return Outcome{State: StateRejected}, err
	}
	s.step(EventValid)

	now := s.opts.Now()
	sub := Submission{
		ID:        s.opts.NewID(),
		Type:      a.typ,
		Email:     s.email,
		Timestamp: now,
		Records:   a.records(now),
	}

	storeCtx, cancel := s.opts.withTimeout(ctx)
	err = s.remote.SubmitEntry(storeCtx, sub)
	cancel()
	if err != nil {
		err = asRemote("submitEntry", err)
		s.log.Warn("submit entry failed", "submission", sub.ID, "error", err)
		s.step(EventStoreFailed)
		return Outcome{State: StateFailed, Submission: sub}, err
	}

	s.prepend(sub.Records)
	s.step(EventStored)
	s.log.Info("submission stored", "submission", sub.ID, "type", a.typ, "records", len(sub.Records))

	return Outcome{
		State:      StateSubmitted,
		Submission: sub,
		Warnings:   s.rules.Warnings(a.days()...),
	}, nil
}

func (s *UserSession) prepend(records []Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(append([]Record(nil), records...), s.entries...)
	s.version++
}

// =============================================================================
// DRAFTS
// =============================================================================

func (s *UserSession) drafts() (DraftStore, error) {
	if s.opts.Drafts == nil {
		return nil, generic.ErrNotFound
	}
	return s.opts.Drafts, nil
}

func (s *UserSession) SaveDraft(ctx context.Context, d Draft) error {
	store, err := s.drafts()
	if err != nil {
		return err
	}
	d.SavedAt = s.opts.Now()
	return store.SaveDraft(ctx, s.email, d)
}

// LoadDraft returns generic.ErrNotFound when no draft is saved.
func (s *UserSession) LoadDraft(ctx context.Context) (Draft, error) {
	store, err := s.drafts()
	if err != nil {
		return Draft{}, err
	}
	d, ok, err := store.LoadDraft(ctx, s.email)
	if err != nil {
		return Draft{}, err
	}
	if !ok {
		return Draft{}, generic.ErrNotFound
	}
	return d, nil
}

func (s *UserSession) ClearDraft(ctx context.Context) error {
	store, err := s.drafts()
	if err != nil {
		return err
	}
	return store.ClearDraft(ctx, s.email)
}

// clearDraftFor drops the draft once its day has been submitted.
func (s *UserSession) clearDraftFor(ctx context.Context, date generic.TimePoint) {
	d, err := s.LoadDraft(ctx)
	if err != nil || !d.Date.Equal(date) {
		return
	}
	if err := s.ClearDraft(ctx); err != nil {
		s.log.Warn("clear draft after submit failed", "error", err)
	}
}
