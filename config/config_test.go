package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timesheet/generic"
	"github.com/warp/timesheet/timesheet"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "timesheet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault_MatchesBuiltInRules(t *testing.T) {
	c := Default()

	rules := c.TimesheetRules()

	assert.Equal(t, "0.5", rules.MinEntryHours.String())
	assert.Equal(t, "24", rules.MaxEntryHours.String())
	assert.Equal(t, 365, rules.MaxRangeDays)
	assert.Equal(t, []timesheet.LeaveType{timesheet.LeaveCasual}, rules.FutureLeaveTypes)
	assert.True(t, rules.DuplicateCheck)
	assert.True(t, rules.WeekendWarning)
	assert.False(t, rules.HolidayWarning)
	assert.True(t, c.SessionOptions().OTPEnabled)
	assert.False(t, c.SessionOptions().FailOpenFetch)
	assert.NoError(t, c.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	// GIVEN: A config file changing a few values
	path := writeConfig(t, `
server:
  port: 9090
remote:
  url: https://script.example.com/exec
  request_timeout: 5s
rules:
  min_entry_hours: 1
  max_entry_hours: 12
  future_leave_types: ["Casual Leave", "Comp Off"]
  holidays:
    - {date: "2025-01-26", name: Republic Day, recurring: true}
features:
  otp: false
  holiday_check: true
  fail_open_fetch: true
`)

	// WHEN: Loading it
	c, err := Load(path)

	// THEN: File values win, untouched defaults remain
	require.NoError(t, err)
	assert.Equal(t, ":9090", c.Addr())
	assert.Equal(t, "https://script.example.com/exec", c.Remote.URL)
	assert.Equal(t, 5*time.Second, c.SessionOptions().RequestTimeout)
	assert.Equal(t, 100, c.Rules.TaskMaxLength)

	rules := c.TimesheetRules()
	assert.Equal(t, "1", rules.MinEntryHours.String())
	assert.Equal(t, []timesheet.LeaveType{timesheet.LeaveCasual, timesheet.LeaveCompOff}, rules.FutureLeaveTypes)
	assert.True(t, rules.HolidayWarning)

	h, ok := rules.Holidays.IsHoliday(generic.MustParseDate("2026-01-26"))
	assert.True(t, ok)
	assert.Equal(t, "Republic Day", h.Name)

	opts := c.SessionOptions()
	assert.False(t, opts.OTPEnabled)
	assert.True(t, opts.FailOpenFetch)
}

func TestLoad_EnvironmentWins(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("PORT", "7070")
	t.Setenv("TIMESHEET_DB", "/tmp/other.db")
	t.Setenv("TIMESHEET_JWT_SECRET", "s3cret")

	c, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 7070, c.Server.Port)
	assert.Equal(t, "/tmp/other.db", c.Database.Path)
	assert.Equal(t, "s3cret", c.Auth.JWTSecret)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "server: [1, 2"},
		{"bad holiday date", "rules:\n  holidays:\n    - {date: someday, name: X}\n"},
		{"inverted hour bounds", "rules:\n  min_entry_hours: 4\n  max_entry_hours: 2\n"},
		{"unknown timezone", "remote:\n  timezone: Mars/Olympus\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingNamedFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_ExampleFile(t *testing.T) {
	c, err := Load(filepath.Join("..", "etc", "timesheet.example.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"@example.com"}, c.Auth.AllowedEmailDomains)
	assert.Len(t, c.Holidays(), 2)
	assert.Equal(t, Default().Rules.MaxDateRangeDays, c.Rules.MaxDateRangeDays)
}

func TestOpenBackend_LocalSheet(t *testing.T) {
	// GIVEN: No remote URL and one configured holiday
	c := Default()
	c.Database.Path = ":memory:"
	c.Rules.Holidays = []HolidayConfig{{Date: "2025-03-14", Name: "Holi"}}
	c.Features.HolidayCheck = true
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// WHEN: Opening the backend
	b, err := c.OpenBackend(context.Background(), logger)
	require.NoError(t, err)
	defer b.Close()

	// THEN: The local sheet is the remote and knows the holiday
	assert.True(t, b.IsLocal())
	_, ok := b.Local.IsHoliday(generic.MustParseDate("2025-03-14"))
	assert.True(t, ok)

	sessions := b.Sessions(c, logger)
	assert.Contains(t, sessions.Rules().Warnings(generic.MustParseDate("2025-03-14")), "2025-03-14 is a holiday (Holi)")
}

func TestOpenBackend_RemoteSheet(t *testing.T) {
	c := Default()
	c.Database.Path = ":memory:"
	c.Remote.URL = "https://script.example.com/exec"
	c.Remote.TokenURL = "https://auth.example.com/token"
	c.Remote.ClientID = "timesheet"

	b, err := c.OpenBackend(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer b.Close()

	assert.False(t, b.IsLocal())
	assert.Same(t, b.Sheet, b.Remote)
}
