package database

import (
	"time"

	"f0oster/userreport/diff"

	"github.com/google/uuid"
)

// RunRecord represents a row in the report_runs table.
type RunRecord struct {
	RunID        uuid.UUID    `json:"run_id"`
	PeriodStart  time.Time    `json:"period_start"`
	PeriodEnd    time.Time    `json:"period_end"`
	DurationDays int          `json:"duration_days"`
	Counts       diff.Counts  `json:"counts"`
	Users        *diff.Result `json:"users,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}
