package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/warp/timesheet/timesheet"
)

// =============================================================================
// ONE-TIME PASSCODES
// =============================================================================

var (
	ErrOTPNotRequested = errors.New("no passcode requested")
	ErrOTPExpired      = errors.New("passcode expired")
	ErrOTPInvalid      = errors.New("invalid passcode")
	ErrOTPAttempts     = errors.New("too many passcode attempts")
	ErrOTPCooldown     = errors.New("passcode resend cooldown")
)

type OTPConfig struct {
	Length int
	Expiry time.Duration

	// ResendCooldown is the minimum gap between two sends to one address.
	// Zero means the 60s default; negative disables it.
	ResendCooldown time.Duration
	MaxAttempts    int

	// HashCost is the bcrypt cost. Zero means bcrypt.DefaultCost.
	HashCost int
}

func (c OTPConfig) withDefaults() OTPConfig {
	if c.Length <= 0 {
		c.Length = 6
	}
	if c.Expiry <= 0 {
		c.Expiry = 10 * time.Minute
	}
	if c.ResendCooldown < 0 {
		c.ResendCooldown = 0
	} else if c.ResendCooldown == 0 {
		c.ResendCooldown = 60 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	return c
}

// Mailer delivers a passcode to the user.
type Mailer interface {
	SendOTP(ctx context.Context, email, code string, expiry time.Duration) error
}

// LogMailer writes passcodes to the log. For local development only.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) SendOTP(_ context.Context, email, code string, expiry time.Duration) error {
	m.Logger.Info("otp issued", "email", email, "code", code, "expires_in", expiry.String())
	return nil
}

func otpError(err error, message string) error {
	return &timesheet.RemoteError{Op: "otp", Message: message, Err: err}
}

// SendOTP issues a new passcode, replacing any previous one, and mails it.
func (s *Store) SendOTP(ctx context.Context, email string) error {
	email = timesheet.NormalizeEmail(email)
	now := s.now()

	s.mu.Lock()
	var sentAt string
	err := s.db.QueryRowContext(ctx, "SELECT sent_at FROM otps WHERE email = ?", email).Scan(&sentAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.mu.Unlock()
		return fmt.Errorf("failed to load otp: %w", err)
	}
	if err == nil {
		if wait := parseTime(sentAt).Add(s.otp.ResendCooldown).Sub(now); wait > 0 {
			s.mu.Unlock()
			return otpError(ErrOTPCooldown,
				fmt.Sprintf("Please wait %d seconds before requesting a new OTP.", int(wait.Round(time.Second).Seconds())))
		}
	}

	code, err := generateCode(s.otp.Length)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.otp.hashCost())
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to hash otp: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO otps (email, code_hash, sent_at, expires_at, attempts)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT(email) DO UPDATE SET
			code_hash = excluded.code_hash,
			sent_at = excluded.sent_at,
			expires_at = excluded.expires_at,
			attempts = 0
	`, email, string(hash), formatTime(now), formatTime(now.Add(s.otp.Expiry)))
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to save otp: %w", err)
	}

	if err := s.mailer.SendOTP(ctx, email, code, s.otp.Expiry); err != nil {
		return otpError(err, "Failed to send OTP. Please try again.")
	}
	return nil
}

// VerifyOTP checks a passcode. A correct code is consumed; a wrong one
// counts toward MaxAttempts.
func (s *Store) VerifyOTP(ctx context.Context, email, otp string) error {
	email = timesheet.NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	var hash, expiresAt string
	var attempts int
	err := s.db.QueryRowContext(ctx,
		"SELECT code_hash, expires_at, attempts FROM otps WHERE email = ?", email,
	).Scan(&hash, &expiresAt, &attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return otpError(ErrOTPNotRequested, "No OTP requested for this email. Please request a new one.")
	}
	if err != nil {
		return fmt.Errorf("failed to load otp: %w", err)
	}

	if s.now().After(parseTime(expiresAt)) {
		return otpError(ErrOTPExpired, "OTP has expired. Please request a new one.")
	}
	if attempts >= s.otp.MaxAttempts {
		return otpError(ErrOTPAttempts, "Too many incorrect attempts. Please request a new OTP.")
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(otp)) != nil {
		if _, err := s.db.ExecContext(ctx, "UPDATE otps SET attempts = attempts + 1 WHERE email = ?", email); err != nil {
			return fmt.Errorf("failed to count otp attempt: %w", err)
		}
		return otpError(ErrOTPInvalid, "Invalid OTP. Please try again.")
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM otps WHERE email = ?", email); err != nil {
		return fmt.Errorf("failed to consume otp: %w", err)
	}
	return nil
}

func (c OTPConfig) hashCost() int {
	if c.HashCost == 0 {
		return bcrypt.DefaultCost
	}
	return c.HashCost
}

func generateCode(length int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", length, n.Int64()), nil
}
