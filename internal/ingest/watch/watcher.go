package watch

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	ingestapp "github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/application"
	ingest "github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/domain"
	"github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/notify"
)

// FileProcessor runs the ingestion pipeline for one workbook path.
type FileProcessor interface {
	ProcessFile(ctx context.Context, path string) (*ingestapp.Result, error)
}

// PendingMarker registers a discovered file before its bytes are stable.
type PendingMarker interface {
	MarkPending(ctx context.Context, path, name string) error
}

// Watcher reacts to workbook drops in the inbox directory. Events are
// debounced per path so a file still being written is picked up exactly
// once after it settles, and settled files are processed one at a time.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	processor   FileProcessor
	pending     PendingMarker
	notifier    notify.Notifier
	dir         string
	patterns    []string
	debounce    time.Duration
	debounceMap map[string]time.Time
	logger      *log.Logger
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// Option configures optional watcher collaborators.
type Option func(*Watcher)

// WithNotifier wires an alert notifier for failed runs.
func WithNotifier(notifier notify.Notifier) Option {
	return func(w *Watcher) {
		if notifier != nil {
			w.notifier = notifier
		}
	}
}

// New constructs a Watcher over the configured inbox directory.
// The pending marker may be nil.
func New(processor FileProcessor, pending PendingMarker, cfg ingestapp.Config, logger *log.Logger, opts ...Option) (*Watcher, error) {
	if processor == nil {
		return nil, errors.New("watch: nil processor")
	}
	if cfg.InboxDir == "" {
		return nil, errors.New("watch: empty inbox dir")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	debounce := time.Duration(cfg.DebounceMS) * time.Millisecond
	if debounce <= 0 {
		debounce = 1500 * time.Millisecond
	}
	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = []string{"*.xlsx", "*.xlsm"}
	}
	if logger == nil {
		logger = log.Default()
	}
	w := &Watcher{
		watcher:     fsw,
		processor:   processor,
		pending:     pending,
		dir:         cfg.InboxDir,
		patterns:    patterns,
		debounce:    debounce,
		debounceMap: make(map[string]time.Time),
		logger:      logger,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching the inbox. Non-blocking; files already sitting in
// the inbox are queued as well, the content-hash gate keeps reprocessing
// them cheap.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}
	w.logger.Printf("event=watch_start dir=%s patterns=%s", w.dir, strings.Join(w.patterns, ","))

	w.sweepExisting(ctx)
	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to drain.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	_ = w.watcher.Close()
	w.logger.Printf("event=watch_stop dir=%s", w.dir)
}

func (w *Watcher) sweepExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Printf("event=watch_sweep_error dir=%s error=%v", w.dir, err)
		return
	}
	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() || !w.matches(entry.Name()) {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		w.queue(ctx, path, now)
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Printf("event=watch_error error=%v", err)
		case <-ticker.C:
			w.processSettled(ctx)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	name := filepath.Base(event.Name)
	// Excel lock files appear next to a workbook being edited.
	if strings.HasPrefix(name, "~$") || !w.matches(name) {
		return
	}
	w.queue(ctx, event.Name, time.Now())
}

func (w *Watcher) queue(ctx context.Context, path string, at time.Time) {
	w.mu.Lock()
	_, known := w.debounceMap[path]
	w.debounceMap[path] = at
	w.mu.Unlock()

	if !known && w.pending != nil {
		if err := w.pending.MarkPending(ctx, path, filepath.Base(path)); err != nil {
			w.logger.Printf("event=watch_pending_error file=%s error=%v", filepath.Base(path), err)
		}
	}
}

func (w *Watcher) processSettled(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, at := range w.debounceMap {
		if now.Sub(at) >= w.debounce {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	sort.Strings(settled)
	for _, path := range settled {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		result, err := w.processor.ProcessFile(ctx, path)
		if err != nil {
			w.logger.Printf("event=watch_process_failed file=%s error=%v", filepath.Base(path), err)
			w.alert(ctx, path, err)
			continue
		}
		if result.Unchanged {
			w.logger.Printf("event=watch_unchanged file=%s", filepath.Base(path))
			continue
		}
		w.logger.Printf("event=watch_processed file=%s inserted=%d updated=%d skipped=%d parse_errors=%d",
			filepath.Base(path), result.Inserted, result.Updated, result.Skipped, len(result.Errors))
	}
}

func (w *Watcher) alert(ctx context.Context, path string, cause error) {
	if w.notifier == nil {
		return
	}
	alert := notify.Alert{
		File:       filepath.Base(path),
		Status:     ingest.RunError,
		Error:      cause.Error(),
		OccurredAt: time.Now().UTC(),
	}
	if err := w.notifier.Notify(ctx, alert); err != nil {
		w.logger.Printf("event=watch_notify_error file=%s error=%v", filepath.Base(path), err)
	}
}

func (w *Watcher) matches(name string) bool {
	for _, pattern := range w.patterns {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
