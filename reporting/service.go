package reporting

import (
	"context"
	"fmt"
	"log/slog"

	"f0oster/userreport/database"
	"f0oster/userreport/diff"
	"f0oster/userreport/report"
	"f0oster/userreport/snapshot"
)

// Service runs the end-to-end report: load the prior snapshot, capture the
// current one, classify the transitions, then mail and archive the result.
type Service struct {
	store         SnapshotStore
	builder       SnapshotBuilder
	classifier    Classifier
	sender        Sender
	archive       Archive
	training      diff.GroupSet
	subjectPrefix string
	log           *slog.Logger
}

func NewService(
	store SnapshotStore,
	builder SnapshotBuilder,
	classifier Classifier,
	sender Sender,
	training diff.GroupSet,
	subjectPrefix string,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:         store,
		builder:       builder,
		classifier:    classifier,
		sender:        sender,
		training:      training,
		subjectPrefix: subjectPrefix,
		log:           logger.With("component", "reporting"),
	}
}

// WithArchive enables recording of completed runs.
func (s *Service) WithArchive(archive Archive) *Service {
	s.archive = archive
	return s
}

// Run performs one reporting cycle. snapshot.ErrNoSnapshot is returned
// unwrapped when there is no prior snapshot to compare against; nothing is
// built or saved in that case. Any other failure aborts before mail is sent.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	prev, err := s.store.Latest()
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "loaded previous snapshot", slog.String("date", prev.Date.String()), slog.Int("users", len(prev.Users)))

	curr, path, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	rep, err := s.Compare(prev, curr)
	if err != nil {
		return nil, err
	}
	rep.SnapshotPath = path

	if err := s.sender.Send(ctx, rep.Subject, rep.Body); err != nil {
		return nil, fmt.Errorf("send report: %w", err)
	}

	if s.archive == nil {
		return rep, nil
	}
	runID, err := s.archive.ArchiveRun(ctx, database.Run{
		Snapshot:     curr,
		PeriodStart:  prev.Date.Time,
		PeriodEnd:    curr.Date.Time,
		DurationDays: rep.DurationDays,
		Result:       rep.Result,
	})
	if err != nil {
		return nil, fmt.Errorf("archive run: %w", err)
	}
	rep.RunID = runID
	return rep, nil
}

// Snapshot builds the current snapshot and saves it to the store.
func (s *Service) Snapshot(ctx context.Context) (*snapshot.Snapshot, string, error) {
	curr, err := s.builder.Build(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("build snapshot: %w", err)
	}
	path, err := s.store.Save(curr)
	if err != nil {
		return nil, "", fmt.Errorf("save snapshot: %w", err)
	}
	return curr, path, nil
}

// Compare classifies the transitions between prev and curr and renders the
// report without sending it.
func (s *Service) Compare(prev, curr *snapshot.Snapshot) (*Report, error) {
	if !prev.Date.Before(curr.Date.Time) {
		s.log.Warn("previous snapshot is not older than current",
			slog.String("previous", prev.Date.String()),
			slog.String("current", curr.Date.String()))
	}

	result, err := s.classifier.Classify(prev, curr, s.training)
	if err != nil {
		return nil, fmt.Errorf("classify transitions: %w", err)
	}

	days := report.DurationDays(prev.Date, curr.Date)
	body, err := report.Format(result.Counts(), prev.Date, curr.Date, days)
	if err != nil {
		return nil, fmt.Errorf("format report: %w", err)
	}

	return &Report{
		Previous:     prev,
		Current:      curr,
		Result:       result,
		DurationDays: days,
		Subject:      report.Subject(s.subjectPrefix, prev.Date, curr.Date),
		Body:         body,
	}, nil
}
