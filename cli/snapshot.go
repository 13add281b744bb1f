package cli

import (
	"fmt"
	"log/slog"

	"f0oster/userreport/snapshot"

	"github.com/spf13/cobra"
)

func (a *app) snapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Capture and save a snapshot without reporting",
		Long: `Capture the current directory state and save it to the snapshot directory.
Use it once to bootstrap before the first run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(cmd.ErrOrStderr()); err != nil {
				return err
			}

			dir, closeDir, err := a.directory()
			if err != nil {
				return err
			}
			defer closeDir()

			snap, err := snapshot.NewBuilder(dir, a.cfg.Directory.FetchConcurrency, a.log).Build(cmd.Context())
			if err != nil {
				return fmt.Errorf("build snapshot: %w", err)
			}
			path, err := a.store().Save(snap)
			if err != nil {
				return fmt.Errorf("save snapshot: %w", err)
			}

			a.log.Info("snapshot saved", slog.String("path", path), slog.Int("users", len(snap.Users)))
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
