/*
Package sqlite provides a SQLite-backed local sheet.

PURPOSE:
  Stands in for the remote spreadsheet when no remote URL is configured.
  Implements the same collaborator contract as the HTTP client, so the
  orchestrator cannot tell them apart, plus the per-user draft slot.

INTERFACES IMPLEMENTED:
  timesheet.Remote:          OTP send/verify, submit, fetch
  timesheet.DraftStore:      One draft per user
  generic.HolidayCalendar:   Company holidays for the warning rules

KEY TABLES:
  entries:     One row per sheet row (work row or leave range)
  submissions: One row per accepted SubmitEntry call, keyed by its ID
  otps:        Hashed one-time passcodes with expiry and attempt count
  drafts:      Saved work form per user
  holidays:    Company holidays (recurring ones match on month/day)

IDEMPOTENCY:
  Submitting the same submission ID twice returns
  generic.ErrDuplicateSubmission and writes nothing.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  store, err := sqlite.New("./data/timesheet.db", sqlite.WithMailer(m))
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - timesheet/remote.go: Remote and DraftStore
  - store/sheets: the HTTP implementation
*/
package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/timesheet/generic"
	"github.com/warp/timesheet/timesheet"
)

// Store implements the local sheet using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex

	otp    OTPConfig
	mailer Mailer
	now    func() time.Time
}

type Option func(*Store)

func WithMailer(m Mailer) Option { return func(s *Store) { s.mailer = m } }

func WithOTPConfig(c OTPConfig) Option { return func(s *Store) { s.otp = c.withDefaults() } }

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{
		db:     db,
		otp:    OTPConfig{}.withDefaults(),
		mailer: LogMailer{Logger: slog.Default()},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Sheet rows. Work rows use date..hours, leave rows leave_type..to_date.
	CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		submission_id TEXT,
		email TEXT NOT NULL,
		entry_type TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		date TEXT NOT NULL DEFAULT '',
		project_name TEXT NOT NULL DEFAULT '',
		task TEXT NOT NULL DEFAULT '',
		billing_type TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		hours TEXT NOT NULL DEFAULT '0',
		leave_type TEXT NOT NULL DEFAULT '',
		session TEXT NOT NULL DEFAULT '',
		from_date TEXT NOT NULL DEFAULT '',
		to_date TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_entries_email
		ON entries(email, timestamp);
	CREATE INDEX IF NOT EXISTS idx_entries_email_date
		ON entries(email, date);

	-- Accepted submissions (idempotency)
	CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		entry_type TEXT NOT NULL,
		records INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	-- One live passcode per email
	CREATE TABLE IF NOT EXISTS otps (
		email TEXT PRIMARY KEY,
		code_hash TEXT NOT NULL,
		sent_at TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0
	);

	-- One draft slot per email
	CREATE TABLE IF NOT EXISTS drafts (
		email TEXT PRIMARY KEY,
		date TEXT NOT NULL DEFAULT '',
		rows_json TEXT NOT NULL,
		saved_at TEXT NOT NULL
	);

	-- Holidays (recurring ones match on month/day)
	CREATE TABLE IF NOT EXISTS holidays (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		recurring BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(date, name);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Helper functions

func formatDate(tp generic.TimePoint) string {
	if tp.IsZero() {
		return ""
	}
	return tp.String()
}

func parseDate(s string) generic.TimePoint {
	if s == "" {
		return generic.TimePoint{}
	}
	tp, err := generic.ParseDate(s)
	if err != nil {
		return generic.TimePoint{}
	}
	return tp
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var (
	_ timesheet.Remote        = (*Store)(nil)
	_ timesheet.DraftStore    = (*Store)(nil)
	_ generic.HolidayCalendar = (*Store)(nil)
)
