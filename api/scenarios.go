/*
scenarios.go - Demo week loaders for the local sheet

PURPOSE:
  Replaces the caller's entries with a prepared week so the form's rules
  can be tried without typing a week of data first. Each scenario lays out
  work and leave around one Monday.

AVAILABLE SCENARIOS:
  empty-week:      No entries, every day open
  full-week:       Mon-Fri fully logged across two projects
  half-day-leave:  Monday half-day sick leave plus 2h work, Tuesday full
  leave-week:      Mon-Tue worked, casual leave Wed-Fri
  long-weekend:    Mon-Thu worked, earned leave Friday through next Monday

HOW SCENARIOS WORK:
 1. Delete the caller's entries and submissions
 2. Build the scenario's records for the chosen week
 3. Import them as sheet rows (no daily rules applied)
 4. Refresh the caller's cache

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "half-day-leave", "week": "2025-03-10"}

  week is any day of the target week; default is last week.

NOTE:
  Only wired when the local SQLite sheet is the system of record. The
  remote spreadsheet is never touched.

SEE ALSO:
  - store/sqlite/entries.go: ClearEntries, ImportRecords
*/
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/warp/timesheet/generic"
	"github.com/warp/timesheet/timesheet"
)

// ScenarioStore is the part of the local sheet scenarios write to.
type ScenarioStore interface {
	ClearEntries(ctx context.Context, email string) (int, error)
	ImportRecords(ctx context.Context, records []timesheet.Record) (int, error)
}

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
	Week       string `json:"week"`
}

type LoadScenarioResponse struct {
	Scenario ScenarioDTO `json:"scenario"`
	Monday   string      `json:"monday"`
	Cleared  int         `json:"cleared"`
	Loaded   int         `json:"loaded"`
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	build func(w weekBuilder)
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "empty-week",
			Name:        "Empty Week",
			Description: "No entries; every working day can take 8 hours",
		},
		build: func(w weekBuilder) {},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "full-week",
			Name:        "Full Week",
			Description: "Monday to Friday fully logged; any new work is refused",
		},
		build: func(w weekBuilder) {
			for d := 0; d < 5; d++ {
				w.fullDay(d)
			}
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "half-day-leave",
			Name:        "Half-Day Leave",
			Description: "Monday has a first-half sick leave and 2 hours of work, leaving 2 hours",
		},
		build: func(w weekBuilder) {
			w.leave(0, 0, timesheet.LeaveSick, timesheet.SessionFirstHalf, "Doctor visit")
			w.work(0, "Project 1", "Bug triage", timesheet.Billable, 2)
			w.fullDay(1)
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "leave-week",
			Name:        "Leave Week",
			Description: "Monday and Tuesday worked, casual leave Wednesday to Friday",
		},
		build: func(w weekBuilder) {
			w.fullDay(0)
			w.fullDay(1)
			w.leave(2, 4, timesheet.LeaveCasual, timesheet.SessionFullDay, "Family function")
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "long-weekend",
			Name:        "Long Weekend",
			Description: "Earned leave from Friday through the next Monday, across the weekend",
		},
		build: func(w weekBuilder) {
			for d := 0; d < 4; d++ {
				w.fullDay(d)
			}
			w.leave(4, 7, timesheet.LeaveEarned, timesheet.SessionFullDay, "Trip home")
		},
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// weekBuilder collects one user's records relative to a Monday.
type weekBuilder struct {
	email   string
	monday  generic.TimePoint
	at      time.Time
	records *[]timesheet.Record
}

func (w weekBuilder) work(day int, project, task string, billing timesheet.BillingType, hours float64) {
	*w.records = append(*w.records, timesheet.Record{
		Type:        timesheet.EntryWork,
		Email:       w.email,
		Timestamp:   w.at,
		Date:        w.monday.AddDays(day),
		ProjectName: project,
		Task:        task,
		BillingType: billing,
		HoursSpent:  generic.NewHours(hours),
	})
}

func (w weekBuilder) fullDay(day int) {
	w.work(day, "Project 1", "Feature work", timesheet.Billable, 5)
	w.work(day, "Other", "Team meetings", timesheet.NonBillable, 3)
}

func (w weekBuilder) leave(from, to int, lt timesheet.LeaveType, session timesheet.Session, desc string) {
	*w.records = append(*w.records, timesheet.Record{
		Type:        timesheet.EntryLeave,
		Email:       w.email,
		Timestamp:   w.at,
		Date:        w.monday.AddDays(from),
		LeaveType:   lt,
		Session:     session,
		FromDate:    w.monday.AddDays(from),
		ToDate:      w.monday.AddDays(to),
		Description: desc,
	})
}

// mondayOf returns the Monday starting d's week.
func mondayOf(d generic.TimePoint) generic.TimePoint {
	return d.AddDays(-((int(d.Weekday()) + 6) % 7))
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	list := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		list[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, list)
}

// LoadScenario replaces the caller's entries with a scenario week.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	if h.Scenarios == nil {
		writeError(w, http.StatusNotFound, "Scenarios are only available on the local sheet", nil)
		return
	}
	var req LoadScenarioRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sc, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	now := h.Sessions.Rules().Now()
	monday := mondayOf(generic.DayOf(now)).AddDays(-7)
	if req.Week != "" {
		d, err := parseDate("week", req.Week)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid week", err)
			return
		}
		monday = mondayOf(d)
	}

	s := h.session(r)
	var records []timesheet.Record
	sc.build(weekBuilder{email: s.Email(), monday: monday, at: now, records: &records})

	ctx := r.Context()
	cleared, err := h.Scenarios.ClearEntries(ctx, s.Email())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear entries", err)
		return
	}
	loaded, err := h.Scenarios.ImportRecords(ctx, records)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}
	h.refresh(r, s)
	h.logger(r).Info("scenario loaded", "scenario", sc.ID, "monday", monday, "records", loaded)

	writeJSON(w, http.StatusOK, LoadScenarioResponse{
		Scenario: sc.ScenarioDTO,
		Monday:   monday.String(),
		Cleared:  cleared,
		Loaded:   loaded,
	})
}
