package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/warp/timesheet/timesheet"
)

// =============================================================================
// DRAFT STORE (timesheet.DraftStore)
// =============================================================================

func (s *Store) LoadDraft(ctx context.Context, email string) (timesheet.Draft, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var date, rowsJSON, savedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT date, rows_json, saved_at FROM drafts WHERE email = ?",
		timesheet.NormalizeEmail(email),
	).Scan(&date, &rowsJSON, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return timesheet.Draft{}, false, nil
	}
	if err != nil {
		return timesheet.Draft{}, false, fmt.Errorf("failed to load draft: %w", err)
	}

	d := timesheet.Draft{Date: parseDate(date), SavedAt: parseTime(savedAt)}
	if err := json.Unmarshal([]byte(rowsJSON), &d.Rows); err != nil {
		return timesheet.Draft{}, false, fmt.Errorf("failed to decode draft rows: %w", err)
	}
	return d, true, nil
}

// SaveDraft overwrites the user's draft slot.
func (s *Store) SaveDraft(ctx context.Context, email string, d timesheet.Draft) error {
	rows := d.Rows
	if rows == nil {
		rows = []timesheet.Row{}
	}
	rowsJSON, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode draft rows: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drafts (email, date, rows_json, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			date = excluded.date,
			rows_json = excluded.rows_json,
			saved_at = excluded.saved_at
	`, timesheet.NormalizeEmail(email), formatDate(d.Date), string(rowsJSON), formatTime(d.SavedAt))
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

func (s *Store) ClearDraft(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM drafts WHERE email = ?", timesheet.NormalizeEmail(email))
	return err
}
