package ingest

import "strings"

// Status is the closed testing-state enum for device records.
// The zero value means the sheet carried no recognizable status.
type Status string

const (
	StatusNone       Status = ""
	StatusNotStarted Status = "NotStarted"
	StatusTesting    Status = "Testing"
	StatusCompleted  Status = "Completed"
	StatusIssue      Status = "Issue"
	StatusCancelled  Status = "Cancelled"
)

var statusSpellings = map[string]Status{
	"not started": StatusNotStarted,
	"not_started": StatusNotStarted,
	"notstarted":  StatusNotStarted,
	"pending":     StatusNotStarted,
	"planned":     StatusNotStarted,
	"testing":     StatusTesting,
	"in testing":  StatusTesting,
	"in progress": StatusTesting,
	"ongoing":     StatusTesting,
	"wip":         StatusTesting,
	"completed":   StatusCompleted,
	"complete":    StatusCompleted,
	"done":        StatusCompleted,
	"passed":      StatusCompleted,
	"finished":    StatusCompleted,
	"issue":       StatusIssue,
	"issues":      StatusIssue,
	"failed":      StatusIssue,
	"blocked":     StatusIssue,
	"cancelled":   StatusCancelled,
	"canceled":    StatusCancelled,
	"dropped":     StatusCancelled,
}

// ParseStatus maps a raw sheet value onto the closed enum.
// Unrecognized spellings collapse to StatusNone, never to an error.
func ParseStatus(raw string) Status {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return StatusNone
	}
	if status, ok := statusSpellings[key]; ok {
		return status
	}
	return StatusNone
}

// ValidStatus reports whether value is one of the enum members.
func ValidStatus(value Status) bool {
	switch value {
	case StatusNone, StatusNotStarted, StatusTesting, StatusCompleted, StatusIssue, StatusCancelled:
		return true
	default:
		return false
	}
}
