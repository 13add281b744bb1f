package cli

import (
	"errors"
	"log/slog"

	"f0oster/userreport/report"
	"f0oster/userreport/reporting"
	"f0oster/userreport/snapshot"

	"github.com/spf13/cobra"
)

func (a *app) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Snapshot the directory, compare with the latest snapshot and mail the report",
		Args:  cobra.NoArgs,
		RunE:  a.runReport,
	}
}

func (a *app) runReport(cmd *cobra.Command, _ []string) error {
	if err := a.load(cmd.ErrOrStderr()); err != nil {
		return err
	}
	ctx := cmd.Context()

	// training groups are read before anything touches the network
	training, err := a.trainingGroups()
	if err != nil {
		return err
	}

	mailer, err := report.NewMailer(a.cfg.Mail, a.log)
	if err != nil {
		return err
	}

	dir, closeDir, err := a.directory()
	if err != nil {
		return err
	}
	defer closeDir()

	svc := reporting.NewService(
		a.store(),
		snapshot.NewBuilder(dir, a.cfg.Directory.FetchConcurrency, a.log),
		a.classifier(),
		mailer,
		training,
		a.cfg.Mail.SubjectPrefix,
		a.log,
	)

	archive, closeArchive, err := a.archive(ctx)
	if err != nil {
		return err
	}
	defer closeArchive()
	if archive != nil {
		svc.WithArchive(archive)
	}

	rep, err := svc.Run(ctx)
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		a.log.Info("no previous snapshot found, exiting; run the snapshot command to create one")
		return err
	}
	if err != nil {
		return err
	}

	counts := rep.Result.Counts()
	a.log.Info("report complete",
		slog.String("snapshot", rep.SnapshotPath),
		slog.Int("days", rep.DurationDays),
		slog.Int("requested", counts.Requested),
		slog.Int("accepted", counts.Accepted),
	)
	return nil
}
