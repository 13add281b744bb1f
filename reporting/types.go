package reporting

import (
	"context"

	"f0oster/userreport/database"
	"f0oster/userreport/diff"
	"f0oster/userreport/snapshot"

	"github.com/google/uuid"
)

// SnapshotStore supplies the prior snapshot and persists the current one.
type SnapshotStore interface {
	Latest() (*snapshot.Snapshot, error)
	Save(snap *snapshot.Snapshot) (string, error)
}

type SnapshotBuilder interface {
	Build(ctx context.Context) (*snapshot.Snapshot, error)
}

type Classifier interface {
	Classify(prev, curr *snapshot.Snapshot, training diff.GroupSet) (*diff.Result, error)
}

// Sender delivers a rendered report.
type Sender interface {
	Send(ctx context.Context, subject, htmlBody string) error
}

// Archive records completed runs. It is optional.
type Archive interface {
	ArchiveRun(ctx context.Context, run database.Run) (uuid.UUID, error)
}

// Report is the outcome of comparing two snapshots.
type Report struct {
	Previous     *snapshot.Snapshot
	Current      *snapshot.Snapshot
	Result       *diff.Result
	DurationDays int
	Subject      string
	Body         string

	// SnapshotPath is set when the current snapshot was saved by this run
	SnapshotPath string

	// RunID is uuid.Nil unless the run was archived
	RunID uuid.UUID
}
