package application

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	ingest "github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/domain"
	ingestmetrics "github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/metrics"
)

// Result summarizes one processing run of a single workbook.
type Result struct {
	FileID    string
	Path      string
	Inserted  int
	Updated   int
	Skipped   int
	Errors    []ingest.ParseError
	Duration  time.Duration
	Unchanged bool
}

// Processor drives one workbook through the pipeline: content-hash gate,
// sheet classification, extraction, upsert and run bookkeeping. Callers must
// serialize work per file path; the gate is not safe against concurrent
// writers for the same file.
type Processor struct {
	opener  ingest.WorkbookOpener
	records ingest.RecordStore
	files   ingest.FileStore
	errs    ingest.ErrorStore
	metrics *ingestmetrics.Metrics
	logger  *log.Logger
}

// NewProcessor constructs a Processor. The error store and metrics may be
// nil; opener, record store and file store are required.
func NewProcessor(opener ingest.WorkbookOpener, records ingest.RecordStore, files ingest.FileStore, errs ingest.ErrorStore, metrics *ingestmetrics.Metrics, logger *log.Logger) *Processor {
	return &Processor{
		opener:  opener,
		records: records,
		files:   files,
		errs:    errs,
		metrics: metrics,
		logger:  logger,
	}
}

// ProcessFile runs the pipeline for one workbook on disk. The brand override
// is derived from the file name.
func (p *Processor) ProcessFile(ctx context.Context, path string) (*Result, error) {
	return p.Process(ctx, path, "")
}

// Process runs the pipeline for one workbook on disk with an explicit brand
// override. An empty override falls back to the file-name derivation.
func (p *Processor) Process(ctx context.Context, path, brandOverride string) (*Result, error) {
	if p == nil || p.opener == nil || p.records == nil || p.files == nil {
		return nil, fmt.Errorf("ingest processor: not configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ingest.ErrUnreadableWorkbook, err)
	}
	return p.ProcessBytes(ctx, path, data, brandOverride)
}

// ProcessBytes runs the pipeline for workbook bytes already in memory, as
// when a workbook arrives through an HTTP upload. path is recorded as the
// run's source and supplies the brand override when none is given.
func (p *Processor) ProcessBytes(ctx context.Context, path string, data []byte, brandOverride string) (*Result, error) {
	if p == nil || p.opener == nil || p.records == nil || p.files == nil {
		return nil, fmt.Errorf("ingest processor: not configured")
	}
	name := filepath.Base(path)
	contentHash := ingest.FileFingerprint(data)

	done, err := p.files.HasCompletedRun(ctx, contentHash)
	if err != nil {
		return nil, err
	}
	if done {
		p.logf("file_unchanged", name, "", "")
		if p.metrics != nil {
			p.metrics.FilesTotal.WithLabelValues("unchanged").Inc()
		}
		return &Result{Path: path, Unchanged: true}, nil
	}

	run, err := p.files.BeginRun(ctx, path, name, contentHash)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	if brandOverride == "" {
		brandOverride = BrandFromFileName(name)
	}
	p.logf("file_start", name, run.ID, "")

	sheets, err := p.opener.Open(data)
	if err != nil {
		err = fmt.Errorf("%w: %v", ingest.ErrUnreadableWorkbook, err)
		p.fail(ctx, run.ID, name, started, err)
		return nil, err
	}

	batch, parseErrs := ExtractWorkbook(sheets, brandOverride, run.ID)

	stats, err := p.records.UpsertByFingerprint(ctx, run.ID, batch)
	if err != nil {
		p.fail(ctx, run.ID, name, started, err)
		return nil, err
	}

	duration := time.Since(started)
	if err := p.files.RecordOutcome(ctx, run.ID, ingest.RunCompleted, stats, len(parseErrs), "", duration); err != nil {
		p.logf("file_outcome_error", name, run.ID, err.Error())
	}
	p.storeParseErrors(ctx, run.ID, name, parseErrs)
	if p.metrics != nil {
		p.metrics.FilesTotal.WithLabelValues("completed").Inc()
		p.metrics.FileDuration.Observe(duration.Seconds())
		p.metrics.RowsExtracted.WithLabelValues("device").Add(float64(len(batch.Devices)))
		p.metrics.RowsExtracted.WithLabelValues("inventory").Add(float64(len(batch.Inventory)))
		p.metrics.ParseErrors.Add(float64(len(parseErrs)))
		p.metrics.UpsertOps.WithLabelValues("inserted").Add(float64(stats.Inserted))
		p.metrics.UpsertOps.WithLabelValues("updated").Add(float64(stats.Updated))
		p.metrics.UpsertOps.WithLabelValues("skipped").Add(float64(stats.Skipped))
	}
	if p.logger != nil {
		p.logger.Printf("event=file_completed file=%s file_id=%s inserted=%d updated=%d skipped=%d parse_errors=%d duration_ms=%d",
			name, run.ID, stats.Inserted, stats.Updated, stats.Skipped, len(parseErrs), duration.Milliseconds())
	}

	return &Result{
		FileID:   run.ID,
		Path:     path,
		Inserted: stats.Inserted,
		Updated:  stats.Updated,
		Skipped:  stats.Skipped,
		Errors:   parseErrs,
		Duration: duration,
	}, nil
}

// ExtractWorkbook classifies every sheet and routes it to the matching
// extraction path, accumulating records and parse errors across sheets.
func ExtractWorkbook(sheets []ingest.Worksheet, brandOverride, fileID string) (ingest.Batch, []ingest.ParseError) {
	var batch ingest.Batch
	var errs []ingest.ParseError
	for _, sheet := range sheets {
		switch ingest.ClassifySheet(sheet.Name) {
		case ingest.SheetInventory:
			records, sheetErrs := ExtractInventory(sheet, brandOverride, fileID)
			batch.Inventory = append(batch.Inventory, records...)
			errs = append(errs, sheetErrs...)
		default:
			records, sheetErrs := ExtractDevices(sheet, brandOverride, fileID)
			batch.Devices = append(batch.Devices, records...)
			errs = append(errs, sheetErrs...)
		}
	}
	return batch, errs
}

// BrandFromFileName derives the brand override from a workbook file name:
// the extension is dropped and the last whitespace-, underscore- or
// hyphen-delimited token wins. "Devices Validation Samsung.xlsx" yields
// "Samsung".
func BrandFromFileName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	tokens := strings.FieldsFunc(base, func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsSpace(r)
	})
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}

func (p *Processor) fail(ctx context.Context, fileID, name string, started time.Time, cause error) {
	duration := time.Since(started)
	if err := p.files.RecordOutcome(ctx, fileID, ingest.RunError, ingest.UpsertStats{}, 0, cause.Error(), duration); err != nil {
		p.logf("file_outcome_error", name, fileID, err.Error())
	}
	if p.metrics != nil {
		p.metrics.FilesTotal.WithLabelValues("error").Inc()
		p.metrics.FileDuration.Observe(duration.Seconds())
	}
	p.logf("file_failed", name, fileID, cause.Error())
}

func (p *Processor) storeParseErrors(ctx context.Context, fileID, name string, errs []ingest.ParseError) {
	if p.errs == nil {
		return
	}
	// Replacing with an empty list clears errors from an earlier run.
	if err := p.errs.ReplaceErrors(ctx, fileID, errs); err != nil {
		p.logf("parse_errors_store_failed", name, fileID, err.Error())
	}
}

func (p *Processor) logf(event, file, fileID, errMsg string) {
	if p.logger == nil {
		return
	}
	p.logger.Printf("event=%s file=%s file_id=%s error=%s", event, file, fileID, errMsg)
}
