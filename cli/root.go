package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"f0oster/userreport/snapshot"

	"github.com/spf13/cobra"
)

// Execute runs the userreport command line and returns the error that
// should make the process exit non-zero.
func Execute(version string) error {
	return run(os.Args[1:], os.Stdout, os.Stderr, version)
}

func run(args []string, stdout, stderr io.Writer, version string) error {
	root := newRootCmd(stdout, stderr)
	root.Version = version
	root.SetArgs(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := root.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, snapshot.ErrNoSnapshot) {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return err
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "userreport",
		Short: "Report new OSG account requests and acceptances",
		Long: `userreport snapshots the OSG user directory, compares the new snapshot
with the latest one on disk and mails a summary of new account requests and
acceptances, split by training and non-training project groups.`,
		RunE:          a.runReport, // default action is run
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&a.envFile, "env", "settings.env", "Settings file loaded into the environment, relative to the executable")

	root.AddCommand(
		a.runCmd(),
		a.snapshotCmd(),
		a.diffCmd(),
		a.historyCmd(),
	)
	return root
}
