package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/warp/timesheet/generic"
	"github.com/warp/timesheet/timesheet"
)

// =============================================================================
// BEARER TOKENS
// =============================================================================

// Auth issues and checks the HS256 tokens handed out after OTP
// verification. The subject is the normalized email.
type Auth struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuth(secret []byte, ttl time.Duration) *Auth {
	return &Auth{secret: secret, ttl: ttl, now: time.Now}
}

// Issue signs a token for email.
func (a *Auth) Issue(email string) (string, time.Time, error) {
	now := a.now()
	exp := now.Add(a.ttl)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   timesheet.NormalizeEmail(email),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, exp, nil
}

// Verify returns the token's email and expiry. Any failure wraps
// generic.ErrUnauthorized.
func (a *Auth) Verify(token string) (string, time.Time, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return "", time.Time{}, fmt.Errorf("%w: %v", generic.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return "", time.Time{}, fmt.Errorf("%w: token has no subject", generic.ErrUnauthorized)
	}
	return claims.Subject, claims.ExpiresAt.Time, nil
}

type ctxKey struct{}

func withEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, ctxKey{}, email)
}

// EmailFrom returns the authenticated email set by RequireSession.
func EmailFrom(ctx context.Context) string {
	email, _ := ctx.Value(ctxKey{}).(string)
	return email
}

// RequireSession checks the bearer token and that the user still has an
// open session. Tokens close to expiry are renewed through the
// X-New-Token header.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "Please log in", errors.New("missing bearer token"))
			return
		}
		email, exp, err := h.Auth.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Session expired. Please log in again.", err)
			return
		}
		if _, ok := h.Sessions.Lookup(email); !ok {
			writeError(w, http.StatusUnauthorized, "Session expired. Please log in again.", errors.New("no open session"))
			return
		}

		if exp.Sub(h.Auth.now()) < h.Auth.ttl/4 {
			if renewed, _, err := h.Auth.Issue(email); err == nil {
				w.Header().Set("X-New-Token", renewed)
			}
		}

		next.ServeHTTP(w, r.WithContext(withEmail(r.Context(), email)))
	})
}
