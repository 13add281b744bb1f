package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"f0oster/userreport/diff"
	"f0oster/userreport/snapshot"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is implemented by *pgxpool.Pool (and by pgxmock in tests).
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DBClient archives snapshots and report runs.
type DBClient struct {
	db  Querier
	log *slog.Logger
}

func NewDBClient(db Querier, logger *slog.Logger) *DBClient {
	return &DBClient{
		db:  db,
		log: logger.With("component", "archive"),
	}
}

// Run is one completed report ready to be archived.
type Run struct {
	Snapshot     *snapshot.Snapshot
	PeriodStart  time.Time
	PeriodEnd    time.Time
	DurationDays int
	Result       *diff.Result
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// SaveSnapshot upserts the snapshot document keyed by its UTC capture day.
func (r *DBClient) SaveSnapshot(ctx context.Context, snap *snapshot.Snapshot) error {
	_, err := r.saveSnapshot(ctx, r.db, snap)
	return err
}

// RecordRun stores the run summary and returns the new run id.
func (r *DBClient) RecordRun(ctx context.Context, run Run) (uuid.UUID, error) {
	return r.recordRun(ctx, r.db, run)
}

// ArchiveRun stores the current snapshot and the run summary in a single
// transaction and returns the new run id.
func (r *DBClient) ArchiveRun(ctx context.Context, run Run) (uuid.UUID, error) {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	defer r.RollbackTx(ctx, tx) // no-op after commit

	captureDay, err := r.saveSnapshot(ctx, tx, run.Snapshot)
	if err != nil {
		return uuid.Nil, err
	}
	runID, err := r.recordRun(ctx, tx, run)
	if err != nil {
		return uuid.Nil, err
	}

	if err := r.CommitTx(ctx, tx); err != nil {
		return uuid.Nil, err
	}

	r.log.InfoContext(ctx, "archived report run", slog.String("run_id", runID.String()), slog.Time("capture_day", captureDay))
	return runID, nil
}

func (r *DBClient) saveSnapshot(ctx context.Context, q execer, snap *snapshot.Snapshot) (time.Time, error) {
	if snap == nil {
		return time.Time{}, fmt.Errorf("save snapshot: nil snapshot")
	}
	document, err := json.Marshal(snap)
	if err != nil {
		return time.Time{}, fmt.Errorf("marshal snapshot: %w", err)
	}

	captured := snap.Date.UTC()
	captureDay := time.Date(captured.Year(), captured.Month(), captured.Day(), 0, 0, 0, 0, time.UTC)
	if _, err := q.Exec(ctx, UpsertSnapshot, captureDay, captured, len(snap.Users), document); err != nil {
		return time.Time{}, fmt.Errorf("upsert snapshot query failed: %w", err)
	}
	return captureDay, nil
}

func (r *DBClient) recordRun(ctx context.Context, q execer, run Run) (uuid.UUID, error) {
	if run.Result == nil {
		return uuid.Nil, fmt.Errorf("record run: nil result")
	}
	users, err := json.Marshal(run.Result)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal classified users: %w", err)
	}

	runID := uuid.New()
	counts := run.Result.Counts()
	_, err = q.Exec(ctx, InsertRun,
		runID,
		run.PeriodStart,
		run.PeriodEnd,
		run.DurationDays,
		counts.Requested,
		counts.RequestedTraining,
		counts.RequestedNonTraining,
		counts.Accepted,
		counts.AcceptedTraining,
		counts.AcceptedNonTraining,
		users,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert run query failed: %w", err)
	}
	return runID, nil
}

// ListRuns returns up to limit runs, most recent period first.
func (r *DBClient) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := r.db.Query(ctx, ListRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs query failed: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var (
			rec   RunRecord
			users []byte
		)
		err := rows.Scan(
			&rec.RunID,
			&rec.PeriodStart,
			&rec.PeriodEnd,
			&rec.DurationDays,
			&rec.Counts.Requested,
			&rec.Counts.RequestedTraining,
			&rec.Counts.RequestedNonTraining,
			&rec.Counts.Accepted,
			&rec.Counts.AcceptedTraining,
			&rec.Counts.AcceptedNonTraining,
			&users,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if len(users) > 0 {
			rec.Users = &diff.Result{}
			if err := json.Unmarshal(users, rec.Users); err != nil {
				return nil, fmt.Errorf("decode users of run %s: %w", rec.RunID, err)
			}
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func (r *DBClient) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction failed: %w", err)
	}
	return tx, nil
}

func (r *DBClient) CommitTx(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction failed: %w", err)
	}
	return nil
}

func (r *DBClient) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	// Rollback returns an error if transaction is already committed/rolled back
	return tx.Rollback(ctx)
}
