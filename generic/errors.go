/*
errors.go - Shared error types for the generic layer

PURPOSE:
  Sentinels for failures that are not specific to timesheet rules.
  Domain packages wrap these with context; rejections of a submission
  live in timesheet/errors.go.

ERROR CATEGORIES:
  1. Input errors - Malformed hours, dates or ranges
  2. Lookup errors - Missing records or sessions
  3. Auth errors - Missing or invalid credentials
  4. Store errors - Duplicate writes

USAGE:
  if errors.Is(err, generic.ErrInvalidPeriod) {
      // 400 to the client
  }

SEE ALSO:
  - timesheet/errors.go: RejectionError and its sentinels
  - api/handlers.go: HTTP status mapping
*/
package generic

import "errors"

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidHours is returned when an hours value cannot be parsed.
	ErrInvalidHours = errors.New("invalid hours")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateSubmission is returned when a submission with the same
	// idempotency key was already stored. Expected on client retries.
	ErrDuplicateSubmission = errors.New("duplicate submission")

	// ErrUnauthorized is returned when a caller is not authenticated.
	ErrUnauthorized = errors.New("unauthorized")
)

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidHours) ||
		errors.Is(err, ErrDuplicateSubmission)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
