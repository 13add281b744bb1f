package database

const (
	// Same-day captures replace each other, like the snapshot files.
	UpsertSnapshot = `
		INSERT INTO snapshots (capture_day, captured_at, user_count, document)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (capture_day)
		DO UPDATE SET
			captured_at = EXCLUDED.captured_at,
			user_count = EXCLUDED.user_count,
			document = EXCLUDED.document`

	InsertRun = `
		INSERT INTO report_runs (
			run_id,
			period_start,
			period_end,
			duration_days,
			requested,
			requested_training,
			requested_non_training,
			accepted,
			accepted_training,
			accepted_non_training,
			users
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	ListRuns = `
		SELECT
			run_id,
			period_start,
			period_end,
			duration_days,
			requested,
			requested_training,
			requested_non_training,
			accepted,
			accepted_training,
			accepted_non_training,
			users,
			created_at
		FROM report_runs
		ORDER BY period_end DESC
		LIMIT $1`
)
