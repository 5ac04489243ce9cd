package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	ingest "github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/domain"
)

const defaultFileTable = "report_files"

// FileStore records file runs and answers the change-detection gate.
// Runs are keyed by path, so reprocessing a path reuses its row.
type FileStore struct {
	db    *sql.DB
	table string
}

// FileStoreOption configures the store.
type FileStoreOption func(*FileStore)

// WithFileTable overrides the file run table name.
func WithFileTable(table string) FileStoreOption {
	return func(s *FileStore) {
		if table != "" {
			s.table = table
		}
	}
}

// NewFileStore constructs a file store using the default table name.
func NewFileStore(db *sql.DB, opts ...FileStoreOption) *FileStore {
	store := &FileStore{db: db, table: defaultFileTable}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// HasCompletedRun reports whether the exact content hash already completed.
func (s *FileStore) HasCompletedRun(ctx context.Context, contentHash string) (bool, error) {
	if s == nil || s.db == nil {
		return false, errors.New("file store: nil db")
	}
	if contentHash == "" {
		return false, nil
	}
	query := fmt.Sprintf(`
SELECT EXISTS (
	SELECT 1 FROM %s WHERE content_hash = $1 AND status = $2
)`, s.table)

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, contentHash, ingest.RunCompleted).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// MarkPending registers a discovered file before its bytes are stable, so a
// dashboard can show it queued. BeginRun later flips the row to PROCESSING.
func (s *FileStore) MarkPending(ctx context.Context, path, name string) error {
	if s == nil || s.db == nil {
		return errors.New("file store: nil db")
	}
	if path == "" {
		return errors.New("file store: empty path")
	}
	now := time.Now().UTC()
	query := fmt.Sprintf(`
INSERT INTO %s (id, path, name, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (path) DO UPDATE SET
	name = EXCLUDED.name,
	status = EXCLUDED.status,
	updated_at = EXCLUDED.updated_at`, s.table)

	_, err := s.db.ExecContext(ctx, query, uuid.NewString(), path, name, ingest.RunPending, now)
	return err
}

// BeginRun upserts the run row for a path and marks it PROCESSING.
func (s *FileStore) BeginRun(ctx context.Context, path, name, contentHash string) (*ingest.FileRun, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("file store: nil db")
	}
	if path == "" {
		return nil, errors.New("file store: empty path")
	}
	now := time.Now().UTC()
	query := fmt.Sprintf(`
INSERT INTO %s (
	id, path, name, content_hash, status,
	inserted_count, updated_count, skipped_count, error_count, error, duration_ms,
	started_at, created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, 0, 0, 0, 0, '', 0, $6, $6, $6
)
ON CONFLICT (path) DO UPDATE SET
	name = EXCLUDED.name,
	content_hash = EXCLUDED.content_hash,
	status = EXCLUDED.status,
	error = '',
	started_at = EXCLUDED.started_at,
	finished_at = NULL,
	updated_at = EXCLUDED.updated_at
RETURNING id, created_at`, s.table)

	run := &ingest.FileRun{
		Path:        path,
		Name:        name,
		ContentHash: contentHash,
		Status:      ingest.RunProcessing,
		StartedAt:   &now,
		UpdatedAt:   now,
	}
	if err := s.db.QueryRowContext(ctx, query,
		uuid.NewString(), path, name, contentHash, ingest.RunProcessing, now,
	).Scan(&run.ID, &run.CreatedAt); err != nil {
		return nil, err
	}
	run.CreatedAt = run.CreatedAt.UTC()
	return run, nil
}

// RecordOutcome stores the terminal status, counts and duration for a run.
func (s *FileStore) RecordOutcome(ctx context.Context, fileID, status string, stats ingest.UpsertStats, errorCount int, errMsg string, duration time.Duration) error {
	if s == nil || s.db == nil {
		return errors.New("file store: nil db")
	}
	if fileID == "" {
		return errors.New("file store: empty file id")
	}
	now := time.Now().UTC()
	query := fmt.Sprintf(`
UPDATE %s SET
	status = $1,
	inserted_count = $2,
	updated_count = $3,
	skipped_count = $4,
	error_count = $5,
	error = $6,
	duration_ms = $7,
	finished_at = $8,
	updated_at = $8
WHERE id = $9`, s.table)

	_, err := s.db.ExecContext(ctx, query,
		status, stats.Inserted, stats.Updated, stats.Skipped, errorCount, errMsg,
		duration.Milliseconds(), now, fileID,
	)
	return err
}

// GetRun returns a run by id, or nil when absent.
func (s *FileStore) GetRun(ctx context.Context, id string) (*ingest.FileRun, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("file store: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, path, name, content_hash, status,
	inserted_count, updated_count, skipped_count, error_count, error, duration_ms,
	started_at, finished_at, created_at, updated_at
FROM %s
WHERE id = $1`, s.table)

	return scanRun(s.db.QueryRowContext(ctx, query, id))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*ingest.FileRun, error) {
	var run ingest.FileRun
	var started, finished sql.NullTime
	if err := row.Scan(
		&run.ID,
		&run.Path,
		&run.Name,
		&run.ContentHash,
		&run.Status,
		&run.Inserted,
		&run.Updated,
		&run.Skipped,
		&run.ErrorCount,
		&run.Error,
		&run.DurationMS,
		&started,
		&finished,
		&run.CreatedAt,
		&run.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if started.Valid {
		t := started.Time.UTC()
		run.StartedAt = &t
	}
	if finished.Valid {
		t := finished.Time.UTC()
		run.FinishedAt = &t
	}
	run.CreatedAt = run.CreatedAt.UTC()
	run.UpdatedAt = run.UpdatedAt.UTC()
	return &run, nil
}
