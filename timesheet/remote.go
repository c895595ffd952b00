package timesheet

import (
	"context"
	"time"

	"github.com/warp/timesheet/generic"
)

// Remote is the spreadsheet/email collaborator. Implementations:
// store/sheets (HTTP), store/sqlite (local sheet), store/memory (tests).
//
// Failures should be *RemoteError so the server-provided message reaches
// the user; other errors are wrapped by the caller.
type Remote interface {
	SendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, otp string) error

	// SubmitEntry persists one submission: a work-day batch or a leave.
	SubmitEntry(ctx context.Context, sub Submission) error

	// FetchEntries returns every record visible to email.
	FetchEntries(ctx context.Context, email string) ([]Record, error)
}

// Draft is the single saved in-progress work form of a user.
type Draft struct {
	Date    generic.TimePoint
	Rows    []Row
	SavedAt time.Time
}

// DraftStore keeps one draft slot per user. LoadDraft reports false when
// the slot is empty.
type DraftStore interface {
	LoadDraft(ctx context.Context, email string) (Draft, bool, error)
	SaveDraft(ctx context.Context, email string, d Draft) error
	ClearDraft(ctx context.Context, email string) error
}

func asRemote(op string, err error) error {
	if err == nil || IsRemote(err) {
		return err
	}
	return &RemoteError{Op: op, Err: err}
}
