package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/warp/timesheet/store/sheets"
	"github.com/warp/timesheet/store/sqlite"
	"github.com/warp/timesheet/timesheet"
)

// Backend is the set of stores a config describes. The local SQLite store
// always exists: it holds drafts and holidays, and is the system of record
// when no remote URL is set.
type Backend struct {
	Remote timesheet.Remote
	Local  *sqlite.Store

	// Sheet is the remote client, nil when running on the local sheet.
	Sheet *sheets.Client
}

func (b *Backend) Close() error { return b.Local.Close() }

// IsLocal reports whether entries live in the local SQLite sheet.
func (b *Backend) IsLocal() bool { return b.Sheet == nil }

// OpenBackend opens the local store, seeds the configured holidays and, when
// a remote URL is set, builds the sheet client.
func (c *Config) OpenBackend(ctx context.Context, logger *slog.Logger) (*Backend, error) {
	if c.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(c.Database.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	local, err := sqlite.New(c.Database.Path,
		sqlite.WithMailer(sqlite.LogMailer{Logger: logger}),
		sqlite.WithOTPConfig(sqlite.OTPConfig{
			Length:         c.Auth.OTPLength,
			Expiry:         c.Auth.OTPExpiry,
			ResendCooldown: c.Auth.OTPResendCooldown,
			MaxAttempts:    c.Auth.OTPMaxAttempts,
		}),
	)
	if err != nil {
		return nil, err
	}

	for _, h := range c.Holidays() {
		if err := local.SaveHoliday(ctx, h); err != nil {
			local.Close()
			return nil, fmt.Errorf("seed holiday %s: %w", h.Name, err)
		}
	}

	b := &Backend{Remote: local, Local: local}
	if c.Remote.URL == "" {
		return b, nil
	}

	loc, err := c.Location()
	if err != nil {
		local.Close()
		return nil, err
	}
	opts := []sheets.Option{sheets.WithLocation(loc), sheets.WithLogger(logger)}
	if c.Remote.TokenURL != "" {
		opts = append(opts, sheets.WithClientCredentials(ctx, clientcredentials.Config{
			ClientID:     c.Remote.ClientID,
			ClientSecret: c.Remote.ClientSecret,
			TokenURL:     c.Remote.TokenURL,
			Scopes:       c.Remote.Scopes,
		}))
	}
	sheet, err := sheets.New(c.Remote.URL, opts...)
	if err != nil {
		local.Close()
		return nil, err
	}
	b.Remote = sheet
	b.Sheet = sheet
	return b, nil
}

// Sessions builds the session registry over the backend. Holiday warnings
// read the local holiday table, which includes the configured ones.
func (b *Backend) Sessions(c *Config, logger *slog.Logger) *timesheet.Sessions {
	rules := c.TimesheetRules()
	rules.Holidays = b.Local

	opts := c.SessionOptions()
	opts.Drafts = b.Local
	opts.Logger = logger
	return timesheet.NewSessions(b.Remote, rules, opts)
}
