package timesheet

import (
	"context"
	"sync"
	"time"
)

// Sessions holds one UserSession per signed-in user and runs the login flow.
type Sessions struct {
	remote Remote
	rules  Rules
	opts   Options

	mu       sync.Mutex
	sessions map[string]*UserSession
	lastSeen map[string]time.Time
}

func NewSessions(remote Remote, rules Rules, opts Options) *Sessions {
	opts = opts.withDefaults()
	if rules.Now == nil {
		rules.Now = opts.Now
	}
	return &Sessions{
		remote:   remote,
		rules:    rules,
		opts:     opts,
		sessions: make(map[string]*UserSession),
		lastSeen: make(map[string]time.Time),
	}
}

func (ss *Sessions) Rules() Rules { return ss.rules }

// OTPEnabled reports whether login requires a passcode.
func (ss *Sessions) OTPEnabled() bool { return ss.opts.OTPEnabled }

// Get returns the user's session, creating it on first use.
func (ss *Sessions) Get(email string) *UserSession {
	email = NormalizeEmail(email)
	ss.mu.Lock()
	defer ss.mu.Unlock()
	s, ok := ss.sessions[email]
	if !ok {
		s = NewUserSession(email, ss.remote, ss.rules, ss.opts)
		ss.sessions[email] = s
	}
	ss.lastSeen[email] = ss.opts.Now()
	return s
}

// Lookup returns the user's session if one is open, without creating it.
func (ss *Sessions) Lookup(email string) (*UserSession, bool) {
	email = NormalizeEmail(email)
	ss.mu.Lock()
	defer ss.mu.Unlock()
	s, ok := ss.sessions[email]
	if ok {
		ss.lastSeen[email] = ss.opts.Now()
	}
	return s, ok
}

// Logout drops the user's session and its cache.
func (ss *Sessions) Logout(email string) {
	email = NormalizeEmail(email)
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, email)
	delete(ss.lastSeen, email)
	ss.opts.Logger.Info("logged out", "email", email)
}

// Sweep drops sessions not used for longer than idle and returns their
// emails. Sessions in the middle of a submission are kept.
func (ss *Sessions) Sweep(idle time.Duration) []string {
	cutoff := ss.opts.Now().Add(-idle)
	ss.mu.Lock()
	defer ss.mu.Unlock()

	var dropped []string
	for email, seen := range ss.lastSeen {
		if !seen.Before(cutoff) || ss.sessions[email].State() != StateIdle {
			continue
		}
		delete(ss.sessions, email)
		delete(ss.lastSeen, email)
		dropped = append(dropped, email)
	}
	return dropped
}

func (ss *Sessions) Len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.sessions)
}

// SendOTP asks the remote store to mail a passcode. With OTP disabled it
// only validates the address.
func (ss *Sessions) SendOTP(ctx context.Context, email string) error {
	if err := ss.rules.ValidateEmail(email); err != nil {
		return err
	}
	if !ss.opts.OTPEnabled {
		return nil
	}
	ctx, cancel := ss.opts.withTimeout(ctx)
	defer cancel()
	if err := ss.remote.SendOTP(ctx, NormalizeEmail(email)); err != nil {
		ss.opts.Logger.Warn("send otp failed", "email", NormalizeEmail(email), "error", err)
		return asRemote("sendOTP", err)
	}
	return nil
}

// VerifyOTP checks the passcode and opens the user's session, loading the
// entry cache. A cache load failure does not fail the login.
func (ss *Sessions) VerifyOTP(ctx context.Context, email, otp string) (*UserSession, error) {
	if err := ss.rules.ValidateEmail(email); err != nil {
		return nil, err
	}
	if ss.opts.OTPEnabled {
		if err := ss.rules.ValidateOTP(otp); err != nil {
			return nil, err
		}
		vctx, cancel := ss.opts.withTimeout(ctx)
		err := ss.remote.VerifyOTP(vctx, NormalizeEmail(email), otp)
		cancel()
		if err != nil {
			ss.opts.Logger.Info("otp rejected", "email", NormalizeEmail(email), "error", err)
			return nil, asRemote("verifyOTP", err)
		}
	}

	s := ss.Get(email)
	if err := s.Refresh(ctx); err != nil {
		s.log.Warn("initial entry load failed", "error", err)
	}
	ss.opts.Logger.Info("logged in", "email", s.Email())
	return s, nil
}
