package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/irtellezg/TrustonicReporting-Dashboard/internal/audit"
	"github.com/irtellezg/TrustonicReporting-Dashboard/internal/auth"
	ingestapp "github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/application"
	ingest "github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/domain"
)

// WorkbookProcessor runs the pipeline over uploaded workbook bytes.
type WorkbookProcessor interface {
	ProcessBytes(ctx context.Context, path string, data []byte, brandOverride string) (*ingestapp.Result, error)
}

// UploadHandler accepts workbook uploads, stores them in the inbox and runs
// the pipeline synchronously.
type UploadHandler struct {
	processor   WorkbookProcessor
	auditLogger audit.Logger
	inboxDir    string
	maxBytes    int64
}

// NewUploadHandler constructs an UploadHandler. maxMB bounds the accepted
// upload size.
func NewUploadHandler(processor WorkbookProcessor, auditLogger audit.Logger, inboxDir string, maxMB int) *UploadHandler {
	if maxMB <= 0 {
		maxMB = 32
	}
	return &UploadHandler{
		processor:   processor,
		auditLogger: auditLogger,
		inboxDir:    inboxDir,
		maxBytes:    int64(maxMB) << 20,
	}
}

// ServeHTTP handles POST /api/v1/uploads.
func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.processor == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".xlsx" && ext != ".xlsm" {
		http.Error(w, "file must be .xlsx or .xlsm", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "read upload error", http.StatusInternalServerError)
		return
	}
	if len(data) == 0 {
		http.Error(w, "empty file", http.StatusBadRequest)
		return
	}

	if h.inboxDir != "" {
		if err := os.MkdirAll(h.inboxDir, 0o755); err != nil {
			http.Error(w, "store upload error", http.StatusInternalServerError)
			return
		}
		if err := os.WriteFile(filepath.Join(h.inboxDir, name), data, 0o644); err != nil {
			http.Error(w, "store upload error", http.StatusInternalServerError)
			return
		}
	}

	brand := r.FormValue("brand")
	result, err := h.processor.ProcessBytes(r.Context(), filepath.Join(h.inboxDir, name), data, brand)
	if err != nil {
		if errors.Is(err, ingest.ErrUnreadableWorkbook) {
			http.Error(w, "unreadable workbook", http.StatusBadRequest)
			return
		}
		http.Error(w, "process error", http.StatusInternalServerError)
		return
	}

	resp := map[string]any{
		"file_id":      result.FileID,
		"name":         name,
		"inserted":     result.Inserted,
		"updated":      result.Updated,
		"skipped":      result.Skipped,
		"parse_errors": len(result.Errors),
		"duration_ms":  result.Duration.Milliseconds(),
		"unchanged":    result.Unchanged,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)

	h.logAudit(r, result.FileID, audit.DigestBytes(data), map[string]any{
		"file":         name,
		"size":         len(data),
		"brand":        brand,
		"inserted":     result.Inserted,
		"updated":      result.Updated,
		"skipped":      result.Skipped,
		"parse_errors": len(result.Errors),
		"unchanged":    result.Unchanged,
	})
}

func (h *UploadHandler) logAudit(r *http.Request, fileID, digest string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	payload, _ := json.Marshal(meta)
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Actor:         auth.SubjectFromContext(r.Context()),
		Role:          string(auth.RoleFromContext(r.Context())),
		Action:        "workbook.upload",
		ResourceType:  "report_file",
		ResourceID:    fileID,
		Metadata:      payload,
		PayloadDigest: digest,
		IP:            audit.ClientIP(r),
		UserAgent:     r.UserAgent(),
	})
}
