/*
handlers.go - HTTP API handlers for timesheet submission

PURPOSE:
  Exposes the per-user submission sessions over REST. Handles HTTP
  request/response and JSON, and delegates every decision to the
  timesheet package.

ENDPOINTS:
  Auth:
    POST   /api/auth/otp           Send a one-time passcode
    POST   /api/auth/verify        Verify it, open a session, return a token
    POST   /api/auth/logout        Close the session

  Entries:
    GET    /api/entries?type=      Refresh and list (all|Work|Leave)
    GET    /api/entries/export     Refresh and download as .xlsx
    GET    /api/status?date=       Refresh and compute the day's status
    POST   /api/date               Date-change advisory

  Work form (live checks use the cache, no refresh):
    POST   /api/rows/validate      Check one row's hours edit
    POST   /api/work/check         Check the whole form
    POST   /api/work               Submit a work day
    POST   /api/leave              Submit a leave

  Drafts:
    GET/PUT/DELETE /api/draft

  Demo (local sheet only):
    GET    /api/scenarios          List demo weeks
    POST   /api/scenarios/load     Replace your entries with one

ERROR HANDLING:
  - 400: Malformed JSON, dates or query values
  - 401: Missing/invalid token, no open session, rejected OTP
  - 404: No draft saved
  - 409: Another submission for the same user is running
  - 422: Rejected edit or submission; code and details locate it
  - 429: OTP resend cooldown
  - 502: The spreadsheet service failed; nothing was stored
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - auth.go: Tokens and the session middleware
  - server.go: Router setup and middleware
  - scenarios.go: Demo weeks
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/warp/timesheet/generic"
	"github.com/warp/timesheet/sheetfile"
	"github.com/warp/timesheet/store/sqlite"
	"github.com/warp/timesheet/timesheet"
)

const maxBodyBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Sessions *timesheet.Sessions
	Auth     *Auth
	Log      *slog.Logger

	// Scenarios is set only when the local sheet is the system of record.
	Scenarios ScenarioStore

	options OptionsDTO
}

// NewHandler creates a handler. projects are offered in the work form.
func NewHandler(sessions *timesheet.Sessions, auth *Auth, projects []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	rules := sessions.Rules()
	return &Handler{
		Sessions: sessions,
		Auth:     auth,
		Log:      logger,
		options: OptionsDTO{
			Projects:      projects,
			BillingTypes:  categoryNames(timesheet.DomainBilling),
			LeaveTypes:    categoryNames(timesheet.DomainLeave),
			Sessions:      []string{string(timesheet.SessionFullDay), string(timesheet.SessionFirstHalf), string(timesheet.SessionSecondHalf)},
			MaxDailyHours: timesheet.MaxDailyHours,
			MinEntryHours: rules.MinEntryHours.Float64(),
			MaxEntryHours: rules.MaxEntryHours.Float64(),
			OTPEnabled:    sessions.OTPEnabled(),
		},
	}
}

func categoryNames(domain string) []string {
	cats := generic.ListCategories(domain)
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.CategoryID()
	}
	return names
}

// session returns the caller's session. RequireSession has checked it exists.
func (h *Handler) session(r *http.Request) *timesheet.UserSession {
	return h.Sessions.Get(EmailFrom(r.Context()))
}

func (h *Handler) logger(r *http.Request) *slog.Logger {
	return h.Log.With("request_id", middleware.GetReqID(r.Context()), "email", EmailFrom(r.Context()))
}

// =============================================================================
// PUBLIC
// =============================================================================

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Options returns the form choices and limits.
func (h *Handler) Options(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.options)
}

// =============================================================================
// AUTH HANDLERS
// =============================================================================

// SendOTP mails a passcode.
// POST /api/auth/otp
func (h *Handler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req SendOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.Sessions.SendOTP(r.Context(), req.Email); err != nil {
		if errors.Is(err, sqlite.ErrOTPCooldown) {
			writeError(w, http.StatusTooManyRequests, timesheet.UserMessage(err, "Please wait before requesting a new OTP."), nil)
			return
		}
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{
		Success: true,
		Message: "OTP sent to " + timesheet.NormalizeEmail(req.Email),
	})
}

// VerifyOTP checks the passcode, opens the session and returns a token.
// POST /api/auth/verify
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	s, err := h.Sessions.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		if timesheet.IsRemote(err) {
			writeError(w, http.StatusUnauthorized, timesheet.UserMessage(err, "Invalid OTP"), nil)
			return
		}
		h.writeDomainError(w, r, err)
		return
	}

	token, exp, err := h.Auth.Issue(s.Email())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token", err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{
		Token:     token,
		ExpiresAt: exp.UTC().Format(time.RFC3339),
		Email:     s.Email(),
	})
}

// Logout closes the session; the token stops working with it.
// POST /api/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Logout(EmailFrom(r.Context()))
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Logged out"})
}

// =============================================================================
// ENTRY HANDLERS
// =============================================================================

// ListEntries refreshes the cache and lists it newest first. A failed
// refresh returns the previous cache marked stale.
// GET /api/entries?type=all|Work|Leave
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	typ, ok := entryTypeParam(w, r)
	if !ok {
		return
	}
	s := h.session(r)
	stale := h.refresh(r, s)

	resp := EntriesResponse{Entries: toEntryDTOs(s.Entries(typ)), Stale: stale}
	if at := s.FetchedAt(); !at.IsZero() {
		resp.FetchedAt = at.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ExportEntries downloads the user's entries as a workbook.
// GET /api/entries/export?type=
func (h *Handler) ExportEntries(w http.ResponseWriter, r *http.Request) {
	typ, ok := entryTypeParam(w, r)
	if !ok {
		return
	}
	s := h.session(r)
	stale := h.refresh(r, s)

	var buf bytes.Buffer
	if err := sheetfile.Export(&buf, s.Entries(typ)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build export", err)
		return
	}

	name := fmt.Sprintf("timesheet-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	if stale {
		w.Header().Set("X-Stale", "true")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// GetStatus refreshes and computes one day.
// GET /api/status?date=YYYY-MM-DD
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate("date", r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	s := h.session(r)
	stale := h.refresh(r, s)

	dto := toStatusDTO(s.Status(date))
	dto.Stale = stale
	writeJSON(w, http.StatusOK, dto)
}

// SelectDate describes what a newly picked day allows.
// POST /api/date
func (h *Handler) SelectDate(w http.ResponseWriter, r *http.Request) {
	var req SelectDateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Please select a date", err)
		return
	}

	adv := h.session(r).SelectDate(r.Context(), date)
	writeJSON(w, http.StatusOK, DateAdvisoryDTO{
		Status:     toStatusDTO(adv.Status),
		CanAddRows: adv.CanAddRows,
		Message:    adv.Message,
		Warnings:   adv.Warnings,
		Stale:      adv.Stale,
	})
}

// refresh reloads the cache and reports whether it is stale.
func (h *Handler) refresh(r *http.Request, s *timesheet.UserSession) bool {
	if err := s.Refresh(r.Context()); err != nil {
		h.logger(r).Warn("refresh failed, serving cached entries", "error", err)
		return true
	}
	return false
}

func entryTypeParam(w http.ResponseWriter, r *http.Request) (timesheet.EntryType, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("type"))
	if raw == "" || strings.EqualFold(raw, "all") {
		return "", true
	}
	typ := timesheet.ParseEntryType(raw)
	if typ == "" {
		writeError(w, http.StatusBadRequest, "type must be all, Work or Leave", nil)
		return "", false
	}
	return typ, true
}

// =============================================================================
// WORK FORM HANDLERS
// =============================================================================

// ValidateRow checks one row's hours against the day's capacity.
// POST /api/rows/validate
func (h *Handler) ValidateRow(w http.ResponseWriter, r *http.Request) {
	var req ValidateRowRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Please select a date", err)
		return
	}

	accepted, err := h.session(r).CheckRowEdit(date, req.RowIndex, generic.NewHours(req.Hours), toRows(req.Rows))
	if errors.Is(err, generic.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "row_index out of range", err)
		return
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ValidateRowResponse{Accepted: true, Hours: accepted.Float64()})
}

// CheckWork runs the submit-time hours check against the cache.
// POST /api/work/check
func (h *Handler) CheckWork(w http.ResponseWriter, r *http.Request) {
	var req WorkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Please select a date", err)
		return
	}

	s := h.session(r)
	rows := toRows(req.Rows)
	if err := s.CheckWork(date, rows); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	status := s.Status(date)
	writeJSON(w, http.StatusOK, WorkCheckResponse{
		OK:     true,
		Status: toStatusDTO(status),
		Total:  status.TotalHours.Add(timesheet.SumRows(rows, -1)).Float64(),
	})
}

// SubmitWork runs one work submission attempt.
// POST /api/work
func (h *Handler) SubmitWork(w http.ResponseWriter, r *http.Request) {
	var req WorkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Please select a date", err)
		return
	}

	out, err := h.session(r).SubmitWork(r.Context(), timesheet.WorkSubmission{
		Date:           date,
		Rows:           toRows(req.Rows),
		AllowDuplicate: req.AllowDuplicate,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOutcomeDTO(out))
}

// SubmitLeave runs one leave submission attempt. Missing dates are
// reported by the field rules, malformed ones here.
// POST /api/leave
func (h *Handler) SubmitLeave(w http.ResponseWriter, r *http.Request) {
	var req LeaveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	from, err := parseOptionalDate("from_date", req.FromDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date", err)
		return
	}
	to, err := parseOptionalDate("to_date", req.ToDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date", err)
		return
	}

	out, err := h.session(r).SubmitLeave(r.Context(), timesheet.LeaveSubmission{
		LeaveType:   timesheet.ParseLeaveType(req.LeaveType),
		Session:     timesheet.ParseSession(req.Session),
		FromDate:    from,
		ToDate:      to,
		Description: req.Description,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOutcomeDTO(out))
}

func toOutcomeDTO(out timesheet.Outcome) OutcomeDTO {
	dto := OutcomeDTO{
		State:        string(out.State),
		SubmissionID: out.Submission.ID,
		Entries:      toEntryDTOs(out.Submission.Records),
		Warnings:     out.Warnings,
	}
	if out.Status != nil {
		st := toStatusDTO(*out.Status)
		dto.Status = &st
	}
	return dto
}

// =============================================================================
// DRAFT HANDLERS
// =============================================================================

// GET /api/draft
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	d, err := h.session(r).LoadDraft(r.Context())
	if err != nil {
		if generic.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "No draft saved", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load draft", err)
		return
	}
	writeJSON(w, http.StatusOK, DraftDTO{
		Date:    dateString(d.Date),
		Rows:    toRowDTOs(d.Rows),
		SavedAt: d.SavedAt.UTC().Format(time.RFC3339),
	})
}

// PUT /api/draft
func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	var req DraftDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	if err := h.session(r).SaveDraft(r.Context(), timesheet.Draft{Date: date, Rows: toRows(req.Rows)}); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save draft", err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Draft saved"})
}

// DELETE /api/draft
func (h *Handler) ClearDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.session(r).ClearDraft(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear draft", err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Draft cleared"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps timesheet and store errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if rej, ok := timesheet.AsRejection(err); ok {
		status := http.StatusUnprocessableEntity
		if rej.Code == timesheet.CodeInFlight {
			status = http.StatusConflict
		}
		writeJSON(w, status, ErrorResponse{
			Error:   rej.Message,
			Code:    string(rej.Code),
			Details: toRejectionDetails(rej),
		})
		return
	}

	switch {
	case errors.Is(err, generic.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Please log in", err)
	case timesheet.IsRemote(err):
		h.logger(r).Warn("remote failure", "error", err)
		writeJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   timesheet.UserMessage(err, "The timesheet service is unavailable. Please try again."),
			Code:    "remote_failure",
			Details: err.Error(),
		})
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	default:
		h.logger(r).Error("unhandled error", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}

// decodeJSON reads a bounded JSON body, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}
