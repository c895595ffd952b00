/*
scheduler.go - Idle session sweeper

PURPOSE:
  Periodically drops sessions nobody has used for a while, so their entry
  caches are released and their tokens stop working.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Sessions in the middle of a submission are never dropped
  - A dropped user has to log in again

USAGE:
  sweeper := NewSessionSweeper(sessions, 2*time.Hour, logger)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - timesheet/sessions.go: Sweep
  - auth.go: RequireSession rejects tokens without a session
*/
package api

import (
	"log/slog"
	"sync"
	"time"

	"github.com/warp/timesheet/timesheet"
)

// SessionSweeper expires idle sessions.
type SessionSweeper struct {
	Sessions      *timesheet.Sessions
	IdleTimeout   time.Duration
	CheckInterval time.Duration
	Log           *slog.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewSessionSweeper(sessions *timesheet.Sessions, idle time.Duration, logger *slog.Logger) *SessionSweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionSweeper{
		Sessions:      sessions,
		IdleTimeout:   idle,
		CheckInterval: 10 * time.Minute,
		Log:           logger,
	}
}

// Start begins sweeping. A zero IdleTimeout disables the sweeper.
func (ss *SessionSweeper) Start() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.IdleTimeout <= 0 {
		ss.Log.Info("session sweeper disabled")
		return
	}
	if ss.ticker != nil {
		return
	}

	ss.ticker = time.NewTicker(ss.CheckInterval)
	ss.stop = make(chan struct{})
	ss.wg.Add(1)
	go ss.run(ss.ticker, ss.stop)

	ss.Log.Info("session sweeper started", "idle_timeout", ss.IdleTimeout, "interval", ss.CheckInterval)
}

// Stop stops the sweeper and waits for the goroutine to exit.
func (ss *SessionSweeper) Stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.ticker == nil {
		return
	}
	ss.ticker.Stop()
	close(ss.stop)
	ss.wg.Wait()
	ss.ticker = nil
	ss.Log.Info("session sweeper stopped")
}

func (ss *SessionSweeper) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer ss.wg.Done()
	for {
		select {
		case <-ticker.C:
			ss.RunNow()
		case <-stop:
			return
		}
	}
}

// RunNow sweeps once and returns the dropped emails.
func (ss *SessionSweeper) RunNow() []string {
	dropped := ss.Sessions.Sweep(ss.IdleTimeout)
	if len(dropped) > 0 {
		ss.Log.Info("expired idle sessions", "count", len(dropped), "remaining", ss.Sessions.Len())
	}
	return dropped
}
