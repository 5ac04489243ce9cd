package ingest

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnreadableWorkbook is returned when a file cannot be opened as a
// workbook at all. It is fatal for that file's run.
var ErrUnreadableWorkbook = errors.New("ingest: unreadable workbook")

// ParseError records one row- or sheet-level extraction problem. Parse errors
// accumulate; they never abort extraction of the remaining rows or sheets.
type ParseError struct {
	Sheet   string
	Row     int
	Column  string
	Message string
}

func (e ParseError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s row %d (%s): %s", e.Sheet, e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("%s row %d: %s", e.Sheet, e.Row, e.Message)
}

// NewRowError builds a row-level parse error.
func NewRowError(sheet string, row int, column, message string) ParseError {
	return ParseError{Sheet: sheet, Row: row, Column: column, Message: message}
}

// NewSheetError builds a sheet-level structural error, reported at row 0.
func NewSheetError(sheet, message string) ParseError {
	return ParseError{Sheet: sheet, Row: 0, Message: message}
}

// ErrorStore persists accumulated parse errors for a file run. Writes are
// best-effort; a store failure must not fail the run itself.
type ErrorStore interface {
	ReplaceErrors(ctx context.Context, fileID string, errs []ParseError) error
}
