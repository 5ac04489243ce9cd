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

const defaultErrorTable = "ingest_errors"

// ErrorStore persists the parse errors accumulated for a file run.
type ErrorStore struct {
	db    *sql.DB
	table string
}

// ErrorStoreOption configures the store.
type ErrorStoreOption func(*ErrorStore)

// WithErrorTable overrides the error table name.
func WithErrorTable(table string) ErrorStoreOption {
	return func(s *ErrorStore) {
		if table != "" {
			s.table = table
		}
	}
}

// NewErrorStore constructs an error store using the default table name.
func NewErrorStore(db *sql.DB, opts ...ErrorStoreOption) *ErrorStore {
	store := &ErrorStore{db: db, table: defaultErrorTable}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// ReplaceErrors swaps the stored errors for a file with the given list.
// An empty list clears errors left over from an earlier run.
func (s *ErrorStore) ReplaceErrors(ctx context.Context, fileID string, errs []ingest.ParseError) error {
	if s == nil || s.db == nil {
		return errors.New("error store: nil db")
	}
	if fileID == "" {
		return errors.New("error store: empty file id")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE file_id = $1`, s.table), fileID); err != nil {
		_ = tx.Rollback()
		return err
	}
	now := time.Now().UTC()
	insert := fmt.Sprintf(`
INSERT INTO %s (id, file_id, sheet, row_index, column_name, message, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, s.table)
	for _, e := range errs {
		if _, err := tx.ExecContext(ctx, insert, uuid.NewString(), fileID, e.Sheet, e.Row, e.Column, e.Message, now); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// ListByFile returns the stored errors for a file in sheet/row order.
func (s *ErrorStore) ListByFile(ctx context.Context, fileID string) ([]ingest.ParseError, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("error store: nil db")
	}
	query := fmt.Sprintf(`
SELECT sheet, row_index, column_name, message
FROM %s
WHERE file_id = $1
ORDER BY sheet ASC, row_index ASC`, s.table)

	rows, err := s.db.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ingest.ParseError
	for rows.Next() {
		var e ingest.ParseError
		if err := rows.Scan(&e.Sheet, &e.Row, &e.Column, &e.Message); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
