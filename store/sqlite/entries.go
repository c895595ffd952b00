package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/timesheet/generic"
	"github.com/warp/timesheet/timesheet"
)

// =============================================================================
// ENTRY STORE (timesheet.Remote submit/fetch)
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SubmitEntry stores all records of a submission atomically.
func (s *Store) SubmitEntry(ctx context.Context, sub timesheet.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO submissions (id, email, entry_type, records, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, sub.ID, timesheet.NormalizeEmail(sub.Email), string(sub.Type), len(sub.Records), formatTime(s.now()))
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateSubmission
		}
		return fmt.Errorf("failed to record submission: %w", err)
	}

	for _, r := range sub.Records {
		if err := insertRecord(ctx, tx, sub.ID, r); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ImportRecords appends records without a submission, as rows copied in
// from a workbook. Returns the number of rows written.
func (s *Store) ImportRecords(ctx context.Context, records []timesheet.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		if err := insertRecord(ctx, tx, "", r); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(records), nil
}

// ClearEntries deletes every row and submission of one user. Used when a
// demo scenario replaces the user's sheet.
func (s *Store) ClearEntries(ctx context.Context, email string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = timesheet.NormalizeEmail(email)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE email = ?`, email)
	if err != nil {
		return 0, fmt.Errorf("failed to clear entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM submissions WHERE email = ?`, email); err != nil {
		return 0, fmt.Errorf("failed to clear submissions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), tx.Commit()
}

func insertRecord(ctx context.Context, db execer, submissionID string, r timesheet.Record) error {
	ts := r.Timestamp
	if ts.IsZero() {
		return fmt.Errorf("record for %s has no timestamp", r.Email)
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO entries
		(submission_id, email, entry_type, timestamp, date, project_name, task, billing_type,
		 description, hours, leave_type, session, from_date, to_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		nullString(submissionID),
		timesheet.NormalizeEmail(r.Email),
		string(r.Type),
		formatTime(ts),
		formatDate(r.Date),
		r.ProjectName,
		r.Task,
		string(r.BillingType),
		r.Description,
		r.HoursSpent.Value.String(),
		string(r.LeaveType),
		string(r.Session),
		formatDate(r.FromDate),
		formatDate(r.ToDate),
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

// FetchEntries returns the user's rows in insertion order.
func (s *Store) FetchEntries(ctx context.Context, email string) ([]timesheet.Record, error) {
	return s.queryEntries(ctx, `
		SELECT email, entry_type, timestamp, date, project_name, task, billing_type,
		       description, hours, leave_type, session, from_date, to_date
		FROM entries
		WHERE email = ?
		ORDER BY id ASC
	`, timesheet.NormalizeEmail(email))
}

// AllEntries returns every row of the sheet, for export.
func (s *Store) AllEntries(ctx context.Context) ([]timesheet.Record, error) {
	return s.queryEntries(ctx, `
		SELECT email, entry_type, timestamp, date, project_name, task, billing_type,
		       description, hours, leave_type, session, from_date, to_date
		FROM entries
		ORDER BY id ASC
	`)
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]timesheet.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []timesheet.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func scanRecord(rows *sql.Rows) (timesheet.Record, error) {
	var (
		r                                    timesheet.Record
		entryType, ts, date, billing, hours  string
		leaveType, session, fromDate, toDate string
	)
	err := rows.Scan(&r.Email, &entryType, &ts, &date, &r.ProjectName, &r.Task, &billing,
		&r.Description, &hours, &leaveType, &session, &fromDate, &toDate)
	if err != nil {
		return r, err
	}

	r.Type = timesheet.ParseEntryType(entryType)
	r.Timestamp = parseTime(ts)
	r.Date = parseDate(date)
	r.BillingType = timesheet.BillingType(billing)
	r.HoursSpent = generic.ParseHours(hours)
	r.LeaveType = timesheet.LeaveType(leaveType)
	r.Session = timesheet.Session(session)
	r.FromDate = parseDate(fromDate)
	r.ToDate = parseDate(toDate)
	return r, nil
}

// SubmissionCount is the number of accepted submissions for email.
func (s *Store) SubmissionCount(ctx context.Context, email string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM submissions WHERE email = ?",
		timesheet.NormalizeEmail(email)).Scan(&n)
	return n, err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
