/*
Package config loads the service configuration.

SOURCES (later wins):
  1. Default()
  2. YAML file: the -config path, or the first of DefaultPaths that exists
  3. Environment: TIMESHEET_REMOTE_URL, TIMESHEET_DB, PORT, LOG_LEVEL,
     LOG_FILE, TIMESHEET_JWT_SECRET, TIMESHEET_CLIENT_SECRET

The daily hours limit is a constant (timesheet.MaxDailyHours) and has no
setting.

SEE ALSO:
  - backend.go: opening the stores a config describes
  - etc/timesheet.example.yaml
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/timesheet/generic"
	"github.com/warp/timesheet/timesheet"
)

// DefaultPaths are tried in order when no file is given.
var DefaultPaths = []string{"timesheet.yaml", "etc/timesheet.yaml", "/etc/timesheet/config.yaml"}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Remote   RemoteConfig   `yaml:"remote"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Rules    RulesConfig    `yaml:"rules"`
	Features FeaturesConfig `yaml:"features"`

	// Projects offered in the work form.
	Projects []string `yaml:"projects"`
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`

	// StaticDir holds a built form to serve at /. Empty serves an index page.
	StaticDir string `yaml:"static_dir"`

	// Sessions unused for SessionIdleTimeout are dropped every SweepInterval.
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout"`
	SweepInterval      time.Duration `yaml:"sweep_interval"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// RemoteConfig points at the spreadsheet script. An empty URL means the
// local SQLite sheet is the system of record.
type RemoteConfig struct {
	URL            string        `yaml:"url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Timezone of the sheet, for reading date cells. Empty means UTC.
	Timezone string `yaml:"timezone"`

	// Optional OAuth2 client credentials.
	TokenURL     string   `yaml:"token_url"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Scopes       []string `yaml:"scopes"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	JWTSecret           string        `yaml:"jwt_secret"`
	TokenTTL            time.Duration `yaml:"token_ttl"`
	AllowedEmailDomains []string      `yaml:"allowed_email_domains"`

	OTPLength         int           `yaml:"otp_length"`
	OTPExpiry         time.Duration `yaml:"otp_expiry"`
	OTPResendCooldown time.Duration `yaml:"otp_resend_cooldown"`
	OTPMaxAttempts    int           `yaml:"otp_max_attempts"`
}

type RulesConfig struct {
	MinEntryHours             float64         `yaml:"min_entry_hours"`
	MaxEntryHours             float64         `yaml:"max_entry_hours"`
	TaskMinLength             int             `yaml:"task_min_length"`
	TaskMaxLength             int             `yaml:"task_max_length"`
	DescriptionMaxLength      int             `yaml:"description_max_length"`
	LeaveDescriptionMinLength int             `yaml:"leave_description_min_length"`
	MaxDateRangeDays          int             `yaml:"max_date_range_days"`
	FutureDatesAllowed        bool            `yaml:"future_dates_allowed"`
	FutureLeaveTypes          []string        `yaml:"future_leave_types"`
	Holidays                  []HolidayConfig `yaml:"holidays"`
}

type HolidayConfig struct {
	Date      string `yaml:"date"`
	Name      string `yaml:"name"`
	Recurring bool   `yaml:"recurring"`
}

type FeaturesConfig struct {
	OTP            bool `yaml:"otp"`
	DuplicateCheck bool `yaml:"duplicate_check"`
	WeekendWarning bool `yaml:"weekend_warning"`
	HolidayCheck   bool `yaml:"holiday_check"`

	// FailOpenFetch treats a failed entry fetch as "no entries" instead of
	// rejecting the submission.
	FailOpenFetch bool `yaml:"fail_open_fetch"`
}

// Default returns the built-in configuration.
func Default() *Config {
	rules := timesheet.DefaultRules()
	return &Config{
		Server: ServerConfig{
			Port:               8080,
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       30 * time.Second,
			AllowedOrigins:     []string{"*"},
			StaticDir:          "./web",
			SessionIdleTimeout: 2 * time.Hour,
			SweepInterval:      10 * time.Minute,
		},
		Log: LogConfig{Level: "info", Console: true, MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30},
		Remote: RemoteConfig{
			RequestTimeout: timesheet.DefaultRequestTimeout,
		},
		Database: DatabaseConfig{Path: "./data/timesheet.db"},
		Auth: AuthConfig{
			TokenTTL:            12 * time.Hour,
			AllowedEmailDomains: rules.AllowedEmailDomains,
			OTPLength:           rules.OTPLength,
			OTPExpiry:           10 * time.Minute,
			OTPResendCooldown:   60 * time.Second,
			OTPMaxAttempts:      5,
		},
		Rules: RulesConfig{
			MinEntryHours:             rules.MinEntryHours.Float64(),
			MaxEntryHours:             rules.MaxEntryHours.Float64(),
			TaskMinLength:             rules.TaskMinLen,
			TaskMaxLength:             rules.TaskMaxLen,
			DescriptionMaxLength:      rules.DescriptionMaxLen,
			LeaveDescriptionMinLength: rules.LeaveDescriptionMinLen,
			MaxDateRangeDays:          rules.MaxRangeDays,
			FutureLeaveTypes:          []string{string(timesheet.LeaveCasual)},
		},
		Features: FeaturesConfig{
			OTP:            true,
			DuplicateCheck: true,
			WeekendWarning: true,
		},
		Projects: []string{"Project 1", "Project 2", "Project 3", "UW Platform", "Other"},
	}
}

// Load reads configFile, or the first of DefaultPaths that exists when it
// is empty, over the defaults and applies environment overrides. A named
// file that cannot be read is an error; missing default files are not.
func Load(configFile string) (*Config, error) {
	c := Default()

	paths := DefaultPaths
	if configFile != "" {
		paths = []string{configFile}
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) && configFile == "" {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		break
	}

	envOverride(&c.Remote.URL, "TIMESHEET_REMOTE_URL")
	envOverride(&c.Remote.ClientSecret, "TIMESHEET_CLIENT_SECRET")
	envOverride(&c.Database.Path, "TIMESHEET_DB")
	envOverride(&c.Log.Level, "LOG_LEVEL")
	envOverride(&c.Log.File, "LOG_FILE")
	envOverride(&c.Auth.JWTSecret, "TIMESHEET_JWT_SECRET")
	envOverrideInt(&c.Server.Port, "PORT")

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.SessionIdleTimeout > 0 && c.Server.SweepInterval <= 0 {
		return fmt.Errorf("server.sweep_interval must be positive when sessions expire")
	}
	if c.Rules.MinEntryHours <= 0 || c.Rules.MaxEntryHours < c.Rules.MinEntryHours {
		return fmt.Errorf("rules: need 0 < min_entry_hours <= max_entry_hours, got %v..%v",
			c.Rules.MinEntryHours, c.Rules.MaxEntryHours)
	}
	if c.Auth.OTPLength <= 0 {
		return fmt.Errorf("auth.otp_length must be positive")
	}
	for _, h := range c.Rules.Holidays {
		if _, err := generic.ParseISODate(h.Date); err != nil {
			return fmt.Errorf("rules.holidays %q: %w", h.Name, err)
		}
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// Location is the sheet's time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Remote.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Remote.Timezone)
	if err != nil {
		return nil, fmt.Errorf("remote.timezone: %w", err)
	}
	return loc, nil
}

// Holidays returns the configured holidays. Validate has checked the dates.
func (c *Config) Holidays() []generic.Holiday {
	out := make([]generic.Holiday, 0, len(c.Rules.Holidays))
	for _, h := range c.Rules.Holidays {
		d, err := generic.ParseISODate(h.Date)
		if err != nil {
			continue
		}
		out = append(out, generic.Holiday{Date: d, Name: h.Name, Recurring: h.Recurring})
	}
	return out
}

// TimesheetRules maps the rules and feature flags onto timesheet.Rules.
// The holiday calendar is set by the caller once the store is open.
func (c *Config) TimesheetRules() timesheet.Rules {
	r := timesheet.DefaultRules()
	r.MinEntryHours = generic.NewHours(c.Rules.MinEntryHours)
	r.MaxEntryHours = generic.NewHours(c.Rules.MaxEntryHours)
	r.TaskMinLen = c.Rules.TaskMinLength
	r.TaskMaxLen = c.Rules.TaskMaxLength
	r.DescriptionMaxLen = c.Rules.DescriptionMaxLength
	r.LeaveDescriptionMinLen = c.Rules.LeaveDescriptionMinLength
	r.MaxRangeDays = c.Rules.MaxDateRangeDays
	r.FutureDatesAllowed = c.Rules.FutureDatesAllowed
	r.FutureLeaveTypes = make([]timesheet.LeaveType, len(c.Rules.FutureLeaveTypes))
	for i, lt := range c.Rules.FutureLeaveTypes {
		r.FutureLeaveTypes[i] = timesheet.ParseLeaveType(lt)
	}
	r.AllowedEmailDomains = c.Auth.AllowedEmailDomains
	r.OTPLength = c.Auth.OTPLength
	r.DuplicateCheck = c.Features.DuplicateCheck
	r.WeekendWarning = c.Features.WeekendWarning
	r.HolidayWarning = c.Features.HolidayCheck
	r.Holidays = generic.StaticCalendar(c.Holidays())
	return r
}

// SessionOptions maps the remote and feature settings onto
// timesheet.Options. Drafts and Logger are left to the caller.
func (c *Config) SessionOptions() timesheet.Options {
	return timesheet.Options{
		RequestTimeout: c.Remote.RequestTimeout,
		FailOpenFetch:  c.Features.FailOpenFetch,
		OTPEnabled:     c.Features.OTP,
	}
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
