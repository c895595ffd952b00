package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/warp/timesheet/sheetfile"
	"github.com/warp/timesheet/store/sheets"
	"github.com/warp/timesheet/timesheet"
)

func (a *app) entriesCmd() *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "List your entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			et, err := entryType(typ)
			if err != nil {
				return err
			}
			s, err := a.session(cmd)
			if err != nil {
				return err
			}

			records := s.Entries(et)
			if len(records) == 0 {
				fmt.Fprintln(a.out, "No entries.")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tDATE\tDETAIL\tHOURS/DAYS")
			for _, r := range records {
				if r.IsWork() {
					fmt.Fprintf(tw, "%s\t%s\t%s / %s (%s)\t%s h\n",
						r.Type, r.Date, r.ProjectName, r.Task, r.BillingType, r.HoursSpent)
					continue
				}
				fmt.Fprintf(tw, "%s\t%s..%s\t%s (%s)\t%d d\n",
					r.Type, r.FromDate, r.ToDate, r.LeaveType, r.Session, r.LeavePeriod().Len())
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&typ, "type", "all", "all, work or leave")
	return cmd
}

func entryType(s string) (timesheet.EntryType, error) {
	if s == "" || s == "all" {
		return "", nil
	}
	if et := timesheet.ParseEntryType(s); et != "" {
		return et, nil
	}
	return "", fmt.Errorf("--type must be all, work or leave, got %q", s)
}

func (a *app) exportCmd() *cobra.Command {
	var (
		out string
		typ string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write your entries to an .xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			et, err := entryType(typ)
			if err != nil {
				return err
			}
			s, err := a.session(cmd)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			records := s.Entries(et)
			if err := sheetfile.Export(f, records); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Exported %d entries to %s\n", len(records), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "timesheet.xlsx", "workbook to write")
	cmd.Flags().StringVar(&typ, "type", "all", "all, work or leave")
	return cmd
}

// importCmd copies workbook rows into the local sheet. Rows are taken as
// they are; the daily rules only apply to submissions.
func (a *app) importCmd() *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load an exported workbook into the local sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.backend.IsLocal() {
				return errors.New("import only works on the local sheet; unset remote.url")
			}
			loc, err := a.cfg.Location()
			if err != nil {
				return err
			}

			f, err := os.Open(in)
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := sheetfile.Import(f, sheets.Decoder{Location: loc})
			if err != nil {
				return err
			}
			n, err := a.backend.Local.ImportRecords(cmd.Context(), res.Records)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Imported %d entries from %s\n", n, in)
			if len(res.Skipped) > 0 {
				fmt.Fprintf(a.out, "Skipped rows: %v\n", res.Skipped)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "workbook to read")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}
