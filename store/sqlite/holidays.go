package sqlite

import (
	"context"

	"github.com/warp/timesheet/generic"
)

// =============================================================================
// HOLIDAY CALENDAR IMPLEMENTATION
// =============================================================================

// SaveHoliday saves a holiday to the database.
func (s *Store) SaveHoliday(ctx context.Context, h generic.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (date, name, recurring, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date, name) DO UPDATE SET
			recurring = excluded.recurring
	`

	_, err := s.db.ExecContext(ctx, query,
		h.Date.String(),
		h.Name,
		h.Recurring,
		formatTime(s.now()),
	)
	return err
}

// DeleteHoliday deletes the named holiday on date.
func (s *Store) DeleteHoliday(ctx context.Context, date generic.TimePoint, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE date = ? AND name = ?", date.String(), name)
	return err
}

// IsHoliday checks if a date is a holiday. Lookup errors count as "not a
// holiday"; holidays only drive warnings.
func (s *Store) IsHoliday(date generic.TimePoint) (generic.Holiday, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT date, name, recurring FROM holidays
		WHERE (recurring = FALSE AND date = ?)
		   OR (recurring = TRUE AND strftime('%m-%d', date) = ?)
		ORDER BY date ASC
		LIMIT 1
	`

	var h generic.Holiday
	var dateStr string
	err := s.db.QueryRow(query, date.String(), date.Time.Format("01-02")).Scan(&dateStr, &h.Name, &h.Recurring)
	if err != nil {
		return generic.Holiday{}, false
	}
	h.Date = parseDate(dateStr)
	return h, true
}

// AllHolidays returns all holidays, oldest first.
func (s *Store) AllHolidays(ctx context.Context) ([]generic.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT date, name, recurring FROM holidays ORDER BY date ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []generic.Holiday
	for rows.Next() {
		var h generic.Holiday
		var dateStr string
		if err := rows.Scan(&dateStr, &h.Name, &h.Recurring); err != nil {
			return nil, err
		}
		h.Date = parseDate(dateStr)
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}
