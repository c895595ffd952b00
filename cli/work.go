package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/warp/timesheet/generic"
	"github.com/warp/timesheet/timesheet"
)

// =============================================================================
// ROW FLAGS
// =============================================================================

const rowFormat = "project|task|billing|description|hours"

// parseRow reads one --row value. Description may be empty.
func parseRow(s string) (timesheet.Row, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 5 {
		return timesheet.Row{}, fmt.Errorf("row %q: want %s", s, rowFormat)
	}
	hours, err := generic.ParseHoursStrict(parts[4])
	if err != nil {
		return timesheet.Row{}, fmt.Errorf("row %q: %w", s, err)
	}
	return timesheet.Row{
		Project:     strings.TrimSpace(parts[0]),
		Task:        strings.TrimSpace(parts[1]),
		BillingType: timesheet.ParseBillingType(parts[2]),
		Description: strings.TrimSpace(parts[3]),
		Hours:       hours,
	}, nil
}

func parseRows(values []string) ([]timesheet.Row, error) {
	rows := make([]timesheet.Row, 0, len(values))
	for _, v := range values {
		r, err := parseRow(v)
		if err != nil {
			return nil, err
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// dateFlag parses --date, defaulting to today.
func (a *app) dateFlag(s string) (generic.TimePoint, error) {
	if s == "" {
		return generic.DayOf(a.now()), nil
	}
	return generic.ParseISODate(s)
}

func printStatus(w io.Writer, st timesheet.DailyStatus) {
	fmt.Fprintf(w, "%s\n", st.Date)
	fmt.Fprintf(w, "  Work:      %s h\n", st.WorkHours)
	fmt.Fprintf(w, "  Leave:     %s h\n", st.LeaveHours)
	fmt.Fprintf(w, "  Total:     %s / %d h\n", st.TotalHours, timesheet.MaxDailyHours)
	fmt.Fprintf(w, "  Remaining: %s h\n", st.RemainingHours)
	switch {
	case st.HasFullLeave:
		fmt.Fprintln(w, "  Full-day leave: no work can be submitted")
	case st.HasPartialLeave:
		fmt.Fprintf(w, "  Half-day leave: %s h of work can be submitted\n", st.Capacity())
	}
}

func printWarnings(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		fmt.Fprintln(w, "warning:", msg)
	}
}

// =============================================================================
// STATUS / CHECK
// =============================================================================

func (a *app) statusCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the hours recorded for a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.dateFlag(date)
			if err != nil {
				return err
			}
			s, err := a.session(cmd)
			if err != nil {
				return err
			}
			adv := s.SelectDate(cmd.Context(), d)
			printStatus(a.out, adv.Status)
			if adv.Message != "" {
				fmt.Fprintln(a.out, adv.Message)
			}
			printWarnings(a.out, adv.Warnings)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day as YYYY-MM-DD (default today)")
	return cmd
}

func (a *app) checkCmd() *cobra.Command {
	var (
		date string
		rows []string
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check work rows against the day without submitting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.dateFlag(date)
			if err != nil {
				return err
			}
			parsed, err := parseRows(rows)
			if err != nil {
				return err
			}
			s, err := a.session(cmd)
			if err != nil {
				return err
			}

			// Add the rows one at a time, as the form does while typing.
			form := timesheet.NewWorkForm(s.Status(d))
			for _, row := range parsed {
				if err := form.AddRow(row); err != nil {
					return err
				}
			}
			if form.Ready != nil {
				return form.Ready
			}
			if err := s.Rules().ValidateRows(form.Rows); err != nil {
				return err
			}
			total := form.Status.TotalHours.Add(form.Total())
			fmt.Fprintf(a.out, "OK: %s totals %s hours\n", d, total)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day as YYYY-MM-DD (default today)")
	cmd.Flags().StringArrayVar(&rows, "row", nil, "work row as "+rowFormat+" (repeatable)")
	return cmd
}

// =============================================================================
// SUBMIT
// =============================================================================

func (a *app) submitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit work or leave",
	}
	cmd.AddCommand(a.submitWorkCmd(), a.submitLeaveCmd())
	return cmd
}

func (a *app) submitWorkCmd() *cobra.Command {
	var (
		date      string
		rows      []string
		allowDups bool
	)
	cmd := &cobra.Command{
		Use:   "work",
		Short: "Submit a day's work rows; the day must total exactly 8 hours",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.dateFlag(date)
			if err != nil {
				return err
			}
			parsed, err := parseRows(rows)
			if err != nil {
				return err
			}
			email, err := a.currentEmail()
			if err != nil {
				return err
			}

			out, err := a.sessions.Get(email).SubmitWork(cmd.Context(), timesheet.WorkSubmission{
				Date:           d,
				Rows:           parsed,
				AllowDuplicate: allowDups,
			})
			if err != nil {
				return submitError(err)
			}
			fmt.Fprintf(a.out, "Submitted %d row(s) for %s (%s)\n", len(out.Submission.Records), d, out.Submission.ID)
			if out.Status != nil {
				printStatus(a.out, *out.Status)
			}
			printWarnings(a.out, out.Warnings)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day as YYYY-MM-DD (default today)")
	cmd.Flags().StringArrayVar(&rows, "row", nil, "work row as "+rowFormat+" (repeatable)")
	cmd.Flags().BoolVar(&allowDups, "allow-duplicate", false, "submit rows matching an existing project and task")
	return cmd
}

func (a *app) submitLeaveCmd() *cobra.Command {
	var leaveType, session, from, to, desc string
	cmd := &cobra.Command{
		Use:   "leave",
		Short: "Submit a leave over a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDate, err := generic.ParseISODate(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			toDate := fromDate
			if to != "" {
				if toDate, err = generic.ParseISODate(to); err != nil {
					return fmt.Errorf("--to: %w", err)
				}
			}
			email, err := a.currentEmail()
			if err != nil {
				return err
			}

			out, err := a.sessions.Get(email).SubmitLeave(cmd.Context(), timesheet.LeaveSubmission{
				LeaveType:   timesheet.ParseLeaveType(leaveType),
				Session:     timesheet.ParseSession(session),
				FromDate:    fromDate,
				ToDate:      toDate,
				Description: desc,
			})
			if err != nil {
				return submitError(err)
			}
			rec := out.Submission.Records[0]
			fmt.Fprintf(a.out, "Submitted %s (%s) %s to %s, %d day(s)\n",
				rec.LeaveType, rec.Session, rec.FromDate, rec.ToDate, rec.LeavePeriod().Len())
			printWarnings(a.out, out.Warnings)
			return nil
		},
	}
	cmd.Flags().StringVar(&leaveType, "type", string(timesheet.LeaveCasual), "leave type")
	cmd.Flags().StringVar(&session, "session", string(timesheet.SessionFullDay), "Full Day, First Half or Second Half")
	cmd.Flags().StringVar(&from, "from", "", "first day as YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day as YYYY-MM-DD (default --from)")
	cmd.Flags().StringVar(&desc, "description", "", "reason for the leave")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

// submitError adds the remote store's wording to failed submissions.
func submitError(err error) error {
	if _, ok := timesheet.AsRejection(err); ok {
		return err
	}
	if timesheet.IsRemote(err) {
		return errors.New(timesheet.UserMessage(err, "Failed to submit entry. Please try again."))
	}
	return err
}
