/*
Package sheets is the HTTP client for the remote spreadsheet service.

PURPOSE:
  The spreadsheet script is the system of record for entries and sends
  the OTP emails. This client speaks its protocol and implements
  timesheet.Remote.

PROTOCOL:
  POST <url>   Content-Type: text/plain, body is JSON with an "action" key
    {"action":"sendOTP",     "email": ...}
    {"action":"verifyOTP",   "email": ..., "otp": ...}
    {"action":"submitEntry", "data": {...sheet columns...}}
  GET  <url>?action=getEntries&email=...
    -> {"entries": [{"Entry Type": "Work", "Date": ..., ...}]}

  Every response may carry {"success": false, "error": "..."}; the error
  text is surfaced to the user as-is.

  The body is sent as text/plain because the script endpoint rejects
  preflighted requests.

AUTH:
  Optional OAuth2 client credentials (WithClientCredentials) when the
  endpoint sits behind a token-checking proxy.

SEE ALSO:
  - columns.go: sheet column names and record mapping
  - timesheet/remote.go: the Remote contract
*/
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/warp/timesheet/timesheet"
)

// Client talks to one spreadsheet script deployment.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	decoder Decoder
	log     *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithClientCredentials authenticates every request with an OAuth2
// client-credentials token. Tokens are cached and refreshed by the
// returned client.
func WithClientCredentials(ctx context.Context, cfg clientcredentials.Config) Option {
	return func(c *Client) { c.http = cfg.Client(ctx) }
}

// WithLocation sets the sheet's time zone for reading date cells.
func WithLocation(loc *time.Location) Option { return func(c *Client) { c.decoder.Location = loc } }

func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.log = l } }

// New creates a client for the script at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid remote url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid remote url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type response struct {
	Success *bool            `json:"success"`
	Error   string           `json:"error"`
	Entries []map[string]any `json:"entries"`
}

// failed reports an explicit success:false. A body without the field
// counts as success.
func (r response) failed() bool { return r.Success != nil && !*r.Success }

// submitData is the submitEntry payload: a flat map of sheet columns, plus
// the timesheetRows array for work batches.
type submitData map[string]any

// =============================================================================
// timesheet.Remote
// =============================================================================

func (c *Client) SendOTP(ctx context.Context, email string) error {
	_, err := c.post(ctx, "sendOTP", map[string]any{"email": email},
		"Failed to send OTP. Please try again.")
	return err
}

func (c *Client) VerifyOTP(ctx context.Context, email, otp string) error {
	_, err := c.post(ctx, "verifyOTP", map[string]any{"email": email, "otp": otp},
		"Invalid OTP")
	return err
}

func (c *Client) SubmitEntry(ctx context.Context, sub timesheet.Submission) error {
	data, err := payload(sub)
	if err != nil {
		return err
	}
	_, err = c.post(ctx, "submitEntry", map[string]any{"data": data},
		"Failed to submit entry. Please try again.")
	return err
}

// FetchEntries returns the user's rows. Rows with an unknown Entry Type
// are dropped.
func (c *Client) FetchEntries(ctx context.Context, email string) ([]timesheet.Record, error) {
	u := *c.baseURL
	q := u.Query()
	q.Set("action", "getEntries")
	q.Set("email", email)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req, "getEntries", "Could not load your existing entries.")
	if err != nil {
		return nil, err
	}

	records := make([]timesheet.Record, 0, len(resp.Entries))
	for i, raw := range resp.Entries {
		rec, ok := c.decoder.Record(stringCells(raw))
		if !ok {
			c.log.Debug("skipping sheet row", "index", i, "entry_type", raw[ColEntryType])
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

func (c *Client) post(ctx context.Context, action string, fields map[string]any, fallback string) (response, error) {
	fields["action"] = action
	body, err := json.Marshal(fields)
	if err != nil {
		return response{}, fmt.Errorf("encoding %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.String(), bytes.NewReader(body))
	if err != nil {
		return response{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Accept", "application/json")

	return c.do(req, action, fallback)
}

// do sends req and decodes the envelope. Transport errors, non-2xx
// statuses, undecodable bodies and success:false all come back as
// *timesheet.RemoteError.
func (c *Client) do(req *http.Request, action, fallback string) (response, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return response{}, &timesheet.RemoteError{Op: action, Message: fallback, Err: err}
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return response{}, &timesheet.RemoteError{Op: action, Message: fallback, Err: fmt.Errorf("reading response body: %w", err)}
	}

	c.log.Debug("sheet call", "action", action, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return response{}, &timesheet.RemoteError{
			Op:      action,
			Message: fallback,
			Err:     fmt.Errorf("sheet API error %d: %s", resp.StatusCode, truncate(body, 200)),
		}
	}

	var out response
	if err := json.Unmarshal(body, &out); err != nil {
		return response{}, &timesheet.RemoteError{Op: action, Message: fallback, Err: fmt.Errorf("decoding sheet response: %w", err)}
	}
	if out.failed() {
		msg := out.Error
		if msg == "" {
			msg = fallback
		}
		return response{}, &timesheet.RemoteError{Op: action, Message: msg}
	}
	return out, nil
}

// =============================================================================
// PAYLOADS
// =============================================================================

// payload flattens a submission into the form layout the script appends
// to the sheet. A work batch becomes one object with Date and
// timesheetRows; a leave becomes its columns.
func payload(sub timesheet.Submission) (submitData, error) {
	if len(sub.Records) == 0 {
		return nil, fmt.Errorf("submission %s has no records", sub.ID)
	}
	first := sub.Records[0]
	data := submitData{
		"Submission ID":             sub.ID,
		ColTimestamp:                sub.Timestamp.UTC().Format(time.RFC3339),
		ColEmail:                    sub.Email,
		"Enter your eNoah email ID": sub.Email,
		ColEntryType:                string(sub.Type),
		ColDate:                     dateCell(first.Date),
	}

	switch sub.Type {
	case timesheet.EntryWork:
		rows := make([]timesheet.Row, len(sub.Records))
		for i, r := range sub.Records {
			rows[i] = timesheet.Row{
				Project:     r.ProjectName,
				Task:        r.Task,
				BillingType: r.BillingType,
				Description: r.Description,
				Hours:       r.HoursSpent,
			}
		}
		data["timesheetRows"] = rows
	case timesheet.EntryLeave:
		data[ColLeaveType] = string(first.LeaveType)
		data[ColSession] = string(first.Session)
		data[ColFromDate] = dateCell(first.FromDate)
		data[ColToDate] = dateCell(first.ToDate)
		data[ColDescription] = first.Description
	default:
		return nil, fmt.Errorf("submission %s has unknown type %q", sub.ID, sub.Type)
	}
	return data, nil
}

// stringCells renders JSON cell values as the text a sheet shows.
func stringCells(raw map[string]any) map[string]string {
	cells := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v := v.(type) {
		case nil:
			cells[k] = ""
		case string:
			cells[k] = v
		case float64:
			cells[k] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			cells[k] = fmt.Sprint(v)
		}
	}
	return cells
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

var _ timesheet.Remote = (*Client)(nil)
