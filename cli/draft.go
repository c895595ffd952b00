package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warp/timesheet/generic"
	"github.com/warp/timesheet/timesheet"
)

// draftCmd manages the single saved work form per user.
func (a *app) draftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Save, show or clear your in-progress work rows",
	}

	var (
		date string
		rows []string
	)
	save := &cobra.Command{
		Use:   "save",
		Short: "Save work rows without submitting",
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
			if err := a.sessions.Get(email).SaveDraft(cmd.Context(), timesheet.Draft{Date: d, Rows: parsed}); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Draft saved for %s (%d rows)\n", d, len(parsed))
			return nil
		},
	}
	save.Flags().StringVar(&date, "date", "", "day as YYYY-MM-DD (default today)")
	save.Flags().StringArrayVar(&rows, "row", nil, "work row as "+rowFormat+" (repeatable)")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the saved draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := a.currentEmail()
			if err != nil {
				return err
			}
			d, err := a.sessions.Get(email).LoadDraft(cmd.Context())
			if generic.IsNotFound(err) {
				fmt.Fprintln(a.out, "No draft saved.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Draft for %s, saved %s\n", d.Date, d.SavedAt.Local().Format("2006-01-02 15:04"))
			for i, r := range d.Rows {
				fmt.Fprintf(a.out, "  %d. %s|%s|%s|%s|%s\n", i+1, r.Project, r.Task, r.BillingType, r.Description, r.Hours)
			}
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the saved draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := a.currentEmail()
			if err != nil {
				return err
			}
			if err := a.sessions.Get(email).ClearDraft(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Draft cleared")
			return nil
		},
	}

	cmd.AddCommand(save, show, clearCmd)
	return cmd
}
