package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (a *app) historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived report runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(cmd.ErrOrStderr()); err != nil {
				return err
			}
			if a.cfg.Archive.DSN == "" {
				return errors.New("history requires ARCHIVE_DSN")
			}

			archive, closeArchive, err := a.archive(cmd.Context())
			if err != nil {
				return err
			}
			defer closeArchive()

			runs, err := archive.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tSTART\tEND\tDAYS\tREQUESTED\tTRAINING\tNON-TRAINING\tACCEPTED\tTRAINING\tNON-TRAINING")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
					r.RunID,
					r.PeriodStart.Format("2006-01-02"),
					r.PeriodEnd.Format("2006-01-02"),
					r.DurationDays,
					r.Counts.Requested,
					r.Counts.RequestedTraining,
					r.Counts.RequestedNonTraining,
					r.Counts.Accepted,
					r.Counts.AcceptedTraining,
					r.Counts.AcceptedNonTraining,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list")
	return cmd
}
