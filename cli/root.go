/*
Package cli is the command-line client.

Every command opens the backend described by the config, drives one
timesheet.UserSession in-process and closes the backend again. Nothing is
shared between invocations except the login file written by `login`.

LOGIN:
  `login` runs the passcode flow once and records the verified email with
  an expiry (auth.token_ttl) in the login file, mode 0600. Later commands
  act as that email. With OTP disabled, --email is accepted directly.

SEE ALSO:
  - cmd/timesheet/main.go
  - timesheet/session.go: the orchestrator every command goes through
*/
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/warp/timesheet/config"
	"github.com/warp/timesheet/logging"
	"github.com/warp/timesheet/timesheet"
)

// ErrNotLoggedIn is returned by commands that need a verified email.
var ErrNotLoggedIn = errors.New("not logged in, run `timesheet login` first")

type app struct {
	configPath string
	email      string
	loginFile  string
	verbose    bool

	cfg      *config.Config
	backend  *config.Backend
	sessions *timesheet.Sessions
	log      *slog.Logger
	out      io.Writer
	now      func() time.Time
}

// Execute is the entry point called from main.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", timesheet.UserMessage(err, err.Error()))
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{now: time.Now}

	root := &cobra.Command{
		Use:   "timesheet",
		Short: "Submit work and leave entries to the timesheet",
		Long: `timesheet records daily work (rows that must total exactly 8 hours)
and leave against the configured spreadsheet, or a local SQLite sheet
when no remote URL is set.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.open,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: first of "+fmt.Sprint(config.DefaultPaths)+")")
	root.PersistentFlags().StringVar(&a.email, "email", "", "email to log in as")
	root.PersistentFlags().StringVar(&a.loginFile, "login-file", "", "where the login is kept (default: ~/.timesheet/login.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at the configured level instead of warnings only")

	root.AddCommand(
		a.loginCmd(),
		a.logoutCmd(),
		a.statusCmd(),
		a.checkCmd(),
		a.submitCmd(),
		a.entriesCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.draftCmd(),
	)
	return root
}

func (a *app) open(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.out = cmd.OutOrStdout()

	logCfg := cfg.Log
	if !a.verbose {
		logCfg.Level = "warn"
	}
	a.log = logging.New(logCfg, cmd.ErrOrStderr())

	a.backend, err = cfg.OpenBackend(cmd.Context(), a.log)
	if err != nil {
		return err
	}
	a.sessions = a.backend.Sessions(cfg, a.log)
	return nil
}

func (a *app) close() error {
	if a.backend == nil {
		return nil
	}
	err := a.backend.Close()
	a.backend = nil
	return err
}

// =============================================================================
// LOGIN FILE
// =============================================================================

type login struct {
	Email     string    `yaml:"email"`
	ExpiresAt time.Time `yaml:"expires_at"`
}

func (a *app) loginPath() (string, error) {
	if a.loginFile != "" {
		return a.loginFile, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".timesheet", "login.yaml"), nil
}

func (a *app) saveLogin(email string) (login, error) {
	l := login{Email: email, ExpiresAt: a.now().Add(a.cfg.Auth.TokenTTL).UTC()}
	path, err := a.loginPath()
	if err != nil {
		return l, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return l, fmt.Errorf("create login dir: %w", err)
	}
	data, err := yaml.Marshal(l)
	if err != nil {
		return l, err
	}
	return l, os.WriteFile(path, data, 0o600)
}

func (a *app) loadLogin() (login, error) {
	path, err := a.loginPath()
	if err != nil {
		return login{}, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return login{}, ErrNotLoggedIn
	}
	if err != nil {
		return login{}, fmt.Errorf("read login: %w", err)
	}
	var l login
	if err := yaml.Unmarshal(data, &l); err != nil {
		return login{}, fmt.Errorf("parse login %s: %w", path, err)
	}
	if l.Email == "" || !a.now().Before(l.ExpiresAt) {
		return login{}, ErrNotLoggedIn
	}
	return l, nil
}

func (a *app) clearLogin() error {
	path, err := a.loginPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// currentEmail is the logged-in email, or --email when passcodes are off.
func (a *app) currentEmail() (string, error) {
	l, err := a.loadLogin()
	if err == nil {
		if a.email != "" && timesheet.NormalizeEmail(a.email) != l.Email {
			return "", fmt.Errorf("logged in as %s, not %s", l.Email, timesheet.NormalizeEmail(a.email))
		}
		return l.Email, nil
	}
	if errors.Is(err, ErrNotLoggedIn) && !a.sessions.OTPEnabled() && a.email != "" {
		if err := a.sessions.Rules().ValidateEmail(a.email); err != nil {
			return "", err
		}
		return timesheet.NormalizeEmail(a.email), nil
	}
	return "", err
}

// session opens the current user's session and loads the entry cache. A
// failed load is reported and the command continues on an empty cache.
func (a *app) session(cmd *cobra.Command) (*timesheet.UserSession, error) {
	email, err := a.currentEmail()
	if err != nil {
		return nil, err
	}
	s := a.sessions.Get(email)
	if err := s.Refresh(cmd.Context()); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", timesheet.UserMessage(err, "could not load your existing entries"))
	}
	return s, nil
}
