package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	ingestapp "github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/application"
	ingest "github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/domain"
	"github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/notify"
)

type stubProcessor struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (s *stubProcessor) ProcessFile(_ context.Context, path string) (*ingestapp.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = append(s.paths, path)
	if s.err != nil {
		return nil, s.err
	}
	return &ingestapp.Result{Path: path, Inserted: 1}, nil
}

func (s *stubProcessor) processed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.paths))
	copy(out, s.paths)
	return out
}

type stubMarker struct {
	mu    sync.Mutex
	paths []string
}

func (s *stubMarker) MarkPending(_ context.Context, path, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = append(s.paths, path)
	return nil
}

func (s *stubMarker) marked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.paths))
	copy(out, s.paths)
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestWatcherProcessesDroppedFile(t *testing.T) {
	dir := t.TempDir()
	processor := &stubProcessor{}
	marker := &stubMarker{}

	w, err := New(processor, marker, ingestapp.Config{
		InboxDir:   dir,
		Patterns:   []string{"*.xlsx"},
		DebounceMS: 50,
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "Tracker Samsung.xlsx")
	if err := os.WriteFile(path, []byte("workbook bytes"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	waitFor(t, 3*time.Second, func() bool {
		return len(processor.processed()) == 1
	})
	if got := processor.processed()[0]; got != path {
		t.Fatalf("processed path = %s, want %s", got, path)
	}
	if marked := marker.marked(); len(marked) != 1 || marked[0] != path {
		t.Fatalf("expected pending mark for %s, got %v", path, marked)
	}
}

func TestWatcherIgnoresNonMatchingAndLockFiles(t *testing.T) {
	dir := t.TempDir()
	processor := &stubProcessor{}

	w, err := New(processor, nil, ingestapp.Config{
		InboxDir:   dir,
		Patterns:   []string{"*.xlsx"},
		DebounceMS: 50,
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	for _, name := range []string{"notes.txt", "~$Tracker.xlsx"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	time.Sleep(500 * time.Millisecond)
	if got := processor.processed(); len(got) != 0 {
		t.Fatalf("expected no processing, got %v", got)
	}
}

func TestWatcherSweepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Inventory LATAM.xlsm")
	if err := os.WriteFile(path, []byte("workbook bytes"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	processor := &stubProcessor{}
	w, err := New(processor, nil, ingestapp.Config{
		InboxDir:   dir,
		Patterns:   []string{"*.xlsx", "*.xlsm"},
		DebounceMS: 50,
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	waitFor(t, 3*time.Second, func() bool {
		return len(processor.processed()) == 1
	})
	if got := processor.processed()[0]; got != path {
		t.Fatalf("processed path = %s, want %s", got, path)
	}
}

type stubAlertNotifier struct {
	mu     sync.Mutex
	alerts []notify.Alert
}

func (s *stubAlertNotifier) Notify(_ context.Context, alert notify.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
	return nil
}

func (s *stubAlertNotifier) received() []notify.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notify.Alert, len(s.alerts))
	copy(out, s.alerts)
	return out
}

func TestWatcherAlertsOnFailedRun(t *testing.T) {
	dir := t.TempDir()
	processor := &stubProcessor{err: errors.New("storage error: connection reset")}
	notifier := &stubAlertNotifier{}

	w, err := New(processor, nil, ingestapp.Config{
		InboxDir:   dir,
		Patterns:   []string{"*.xlsx"},
		DebounceMS: 50,
	}, nil, WithNotifier(notifier))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "Tracker Samsung.xlsx"), []byte("workbook bytes"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	waitFor(t, 3*time.Second, func() bool {
		return len(notifier.received()) == 1
	})
	alert := notifier.received()[0]
	if alert.File != "Tracker Samsung.xlsx" {
		t.Fatalf("alert file = %s", alert.File)
	}
	if alert.Status != ingest.RunError {
		t.Fatalf("alert status = %s, want %s", alert.Status, ingest.RunError)
	}
	if alert.Error != "storage error: connection reset" {
		t.Fatalf("alert error = %s", alert.Error)
	}
}

func TestWatcherRejectsNilProcessor(t *testing.T) {
	if _, err := New(nil, nil, ingestapp.Config{InboxDir: "inbox"}, nil); err == nil {
		t.Fatal("expected error for nil processor")
	}
}
