package ingest

import (
	"context"
	"time"
)

// Processing states for one file run.
const (
	RunPending    = "PENDING"
	RunProcessing = "PROCESSING"
	RunCompleted  = "COMPLETED"
	RunError      = "ERROR"
)

// FileRun tracks one source workbook through the pipeline. Runs are keyed by
// path; the content hash decides whether bytes need (re)processing.
type FileRun struct {
	ID          string
	Path        string
	Name        string
	ContentHash string
	Status      string
	Inserted    int
	Updated     int
	Skipped     int
	ErrorCount  int
	Error       string
	DurationMS  int64
	StartedAt   *time.Time
	FinishedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FileStore records file runs and answers the change-detection gate.
type FileStore interface {
	// HasCompletedRun reports whether the exact content hash has already been
	// processed to completion. The gate runs before any workbook is opened.
	HasCompletedRun(ctx context.Context, contentHash string) (bool, error)

	// BeginRun upserts the run row for path and marks it PROCESSING.
	BeginRun(ctx context.Context, path, name, contentHash string) (*FileRun, error)

	// RecordOutcome stores the terminal status, counts and duration for a run.
	RecordOutcome(ctx context.Context, fileID, status string, stats UpsertStats, errorCount int, errMsg string, duration time.Duration) error
}
