package cli

import (
	"encoding/json"
	"fmt"

	"f0oster/userreport/config"
	"f0oster/userreport/reporting"
	"f0oster/userreport/snapshot"

	"github.com/spf13/cobra"
)

func (a *app) diffCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "diff PREV CURR",
		Short: "Classify the transitions between two snapshot files and print the report",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			// offline: the directory is never contacted
			if err := a.load(cmd.ErrOrStderr(), config.WithoutDirectory()); err != nil {
				return err
			}

			training, err := a.trainingGroups()
			if err != nil {
				return err
			}

			prev, err := snapshot.Load(args[0])
			if err != nil {
				return err
			}
			curr, err := snapshot.Load(args[1])
			if err != nil {
				return err
			}

			svc := reporting.NewService(nil, nil, a.classifier(), nil, training, a.cfg.Mail.SubjectPrefix, a.log)
			rep, err := svc.Compare(prev, curr)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rep.Result)
			}
			fmt.Fprintln(out, rep.Subject)
			fmt.Fprint(out, rep.Body)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Print the classified user lists as JSON")
	return cmd
}
