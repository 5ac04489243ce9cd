package apihttp

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	ingest "github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/domain"
)

const (
	dateLayout = "2006-01-02"

	defaultLimit = 200
	maxLimit     = 1000
)

// DevicesHandler serves device record queries.
type DevicesHandler struct {
	db *sql.DB
}

// NewDevicesHandler constructs a DevicesHandler.
func NewDevicesHandler(db *sql.DB) *DevicesHandler {
	return &DevicesHandler{db: db}
}

// ServeHTTP handles GET /api/v1/devices.
func (h *DevicesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.db == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	filters, err := parseDeviceFilters(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	devices, err := queryDevices(r.Context(), h.db, filters, limit)
	if err != nil {
		http.Error(w, "query devices error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(devices)
}

// DeviceSummaryHandler serves grouped device counts.
type DeviceSummaryHandler struct {
	db *sql.DB
}

// NewDeviceSummaryHandler constructs a DeviceSummaryHandler.
func NewDeviceSummaryHandler(db *sql.DB) *DeviceSummaryHandler {
	return &DeviceSummaryHandler{db: db}
}

// ServeHTTP handles GET /api/v1/devices/summary.
func (h *DeviceSummaryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.db == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	groupBy := r.URL.Query().Get("group_by")
	column, multi, err := resolveGroupBy(groupBy)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	brand := r.URL.Query().Get("brand")

	summary, err := queryDeviceSummary(r.Context(), h.db, groupBy, column, multi, brand)
	if err != nil {
		http.Error(w, "query summary error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}

// InventoryHandler serves inventory record queries.
type InventoryHandler struct {
	db *sql.DB
}

// NewInventoryHandler constructs an InventoryHandler.
func NewInventoryHandler(db *sql.DB) *InventoryHandler {
	return &InventoryHandler{db: db}
}

// ServeHTTP handles GET /api/v1/inventory.
func (h *InventoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.db == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	filters := inventoryFilters{
		Brand:    r.URL.Query().Get("brand"),
		Solution: r.URL.Query().Get("solution"),
		Flow:     r.URL.Query().Get("flow"),
		Query:    r.URL.Query().Get("q"),
	}

	items, err := queryInventory(r.Context(), h.db, filters, limit)
	if err != nil {
		http.Error(w, "query inventory error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(items)
}

// FilesHandler serves processed-file runs and their parse errors.
type FilesHandler struct {
	db *sql.DB
}

// NewFilesHandler constructs a FilesHandler.
func NewFilesHandler(db *sql.DB) *FilesHandler {
	return &FilesHandler{db: db}
}

// ServeHTTP routes file-run endpoints.
func (h *FilesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.db == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	switch {
	case r.URL.Path == "/api/v1/files":
		h.handleList(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/files/"):
		rest := strings.TrimPrefix(r.URL.Path, "/api/v1/files/")
		parts := strings.Split(rest, "/")
		if len(parts) == 2 && parts[0] != "" && parts[1] == "errors" {
			h.handleErrors(w, r, parts[0])
			return
		}
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *FilesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	status, err := resolveRunStatus(r.URL.Query().Get("status"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	files, err := queryFiles(r.Context(), h.db, status, limit)
	if err != nil {
		http.Error(w, "query files error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(files)
}

func (h *FilesHandler) handleErrors(w http.ResponseWriter, r *http.Request, fileID string) {
	exists, err := fileExists(r.Context(), h.db, fileID)
	if err != nil {
		http.Error(w, "query file error", http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	parseErrors, err := queryFileErrors(r.Context(), h.db, fileID)
	if err != nil {
		http.Error(w, "query file errors error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(parseErrors)
}

type deviceFilters struct {
	Brand    string
	Region   string
	Customer string
	Solution string
	Status   string
	Query    string
}

type inventoryFilters struct {
	Brand    string
	Solution string
	Flow     string
	Query    string
}

type deviceRow struct {
	ID             string  `json:"id"`
	Brand          string  `json:"brand"`
	DeviceName     string  `json:"device_name"`
	Model          string  `json:"model"`
	Build          string  `json:"build,omitempty"`
	TAC            string  `json:"tac,omitempty"`
	ApprovalDate   *string `json:"approval_date"`
	ScheduleDate   *string `json:"schedule_date"`
	LaunchDate     *string `json:"launch_date"`
	DualSIM        bool    `json:"dual_sim"`
	TargetRegion   string  `json:"target_region,omitempty"`
	TargetCustomer string  `json:"target_customer,omitempty"`
	TargetSolution string  `json:"target_solution,omitempty"`
	Status         string  `json:"status,omitempty"`
	Comments       string  `json:"comments,omitempty"`
	Tester         string  `json:"tester,omitempty"`
	Contact        string  `json:"contact,omitempty"`
	Priority       string  `json:"priority,omitempty"`
	SheetName      string  `json:"sheet_name"`
	RowIndex       int     `json:"row_index"`
	FileID         string  `json:"file_id,omitempty"`
}

type inventoryRow struct {
	ID             string          `json:"id"`
	Brand          string          `json:"brand"`
	MarketingName  string          `json:"marketing_name,omitempty"`
	Model          string          `json:"model,omitempty"`
	SerialNumber   string          `json:"serial_number,omitempty"`
	IMEI1          string          `json:"imei1,omitempty"`
	IMEI2          string          `json:"imei2,omitempty"`
	ReceivedOn     string          `json:"received_on,omitempty"`
	ReturnedOn     string          `json:"returned_on,omitempty"`
	Remark         string          `json:"remark,omitempty"`
	SolutionType   string          `json:"solution_type,omitempty"`
	TargetCustomer string          `json:"target_customer,omitempty"`
	Comments       string          `json:"comments,omitempty"`
	Flow           string          `json:"flow,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	SheetName      string          `json:"sheet_name"`
	RowIndex       int             `json:"row_index"`
	FileID         string          `json:"file_id,omitempty"`
}

type fileRow struct {
	ID            string     `json:"id"`
	Path          string     `json:"path"`
	Name          string     `json:"name"`
	ContentHash   string     `json:"content_hash"`
	Status        string     `json:"status"`
	InsertedCount int        `json:"inserted_count"`
	UpdatedCount  int        `json:"updated_count"`
	SkippedCount  int        `json:"skipped_count"`
	ErrorCount    int        `json:"error_count"`
	Error         string     `json:"error,omitempty"`
	DurationMS    int64      `json:"duration_ms"`
	StartedAt     *time.Time `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type fileErrorRow struct {
	Sheet      string    `json:"sheet"`
	RowIndex   int       `json:"row_index"`
	ColumnName string    `json:"column_name,omitempty"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

type summaryBucket struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type summaryResponse struct {
	GroupBy string          `json:"group_by"`
	Total   int             `json:"total"`
	Buckets []summaryBucket `json:"buckets"`
}

func queryDevices(ctx context.Context, db *sql.DB, filters deviceFilters, limit int) ([]deviceRow, error) {
	rows, err := db.QueryContext(ctx, `
SELECT
	id,
	brand,
	device_name,
	model,
	build,
	tac,
	approval_date,
	schedule_date,
	launch_date,
	dual_sim,
	target_region,
	target_customer,
	target_solution,
	status,
	comments,
	tester,
	contact,
	priority,
	sheet_name,
	row_index,
	COALESCE(file_id, '')
FROM devices
WHERE ($1 = '' OR brand ILIKE $1)
	AND ($2 = '' OR target_region ILIKE '%' || $2 || '%')
	AND ($3 = '' OR target_customer ILIKE '%' || $3 || '%')
	AND ($4 = '' OR target_solution ILIKE '%' || $4 || '%')
	AND ($5 = '' OR status = $5)
	AND ($6 = '' OR device_name ILIKE '%' || $6 || '%' OR model ILIKE '%' || $6 || '%')
ORDER BY brand ASC, device_name ASC, model ASC
LIMIT $7`,
		filters.Brand, filters.Region, filters.Customer, filters.Solution, filters.Status, filters.Query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []deviceRow
	for rows.Next() {
		var row deviceRow
		var approval, schedule, launch sql.NullTime
		if err := rows.Scan(
			&row.ID,
			&row.Brand,
			&row.DeviceName,
			&row.Model,
			&row.Build,
			&row.TAC,
			&approval,
			&schedule,
			&launch,
			&row.DualSIM,
			&row.TargetRegion,
			&row.TargetCustomer,
			&row.TargetSolution,
			&row.Status,
			&row.Comments,
			&row.Tester,
			&row.Contact,
			&row.Priority,
			&row.SheetName,
			&row.RowIndex,
			&row.FileID,
		); err != nil {
			return nil, err
		}
		row.ApprovalDate = formatDate(approval)
		row.ScheduleDate = formatDate(schedule)
		row.LaunchDate = formatDate(launch)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func queryDeviceSummary(ctx context.Context, db *sql.DB, groupBy, column string, multi bool, brand string) (summaryResponse, error) {
	summary := summaryResponse{GroupBy: groupBy, Buckets: []summaryBucket{}}

	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM devices WHERE ($1 = '' OR brand ILIKE $1)`, brand,
	).Scan(&summary.Total); err != nil {
		return summary, err
	}

	// Normalized multi-value columns join their segments with ", ", so
	// string_to_array recovers each value for counting.
	query := `
SELECT ` + column + ` AS key, COUNT(*) AS total
FROM devices
WHERE ($1 = '' OR brand ILIKE $1)
GROUP BY key
ORDER BY total DESC, key ASC`
	if multi {
		query = `
SELECT segment AS key, COUNT(*) AS total
FROM devices, unnest(string_to_array(` + column + `, ', ')) AS segment
WHERE ` + column + ` <> '' AND ($1 = '' OR brand ILIKE $1)
GROUP BY segment
ORDER BY total DESC, key ASC`
	}

	rows, err := db.QueryContext(ctx, query, brand)
	if err != nil {
		return summary, err
	}
	defer rows.Close()

	for rows.Next() {
		var bucket summaryBucket
		if err := rows.Scan(&bucket.Key, &bucket.Count); err != nil {
			return summary, err
		}
		summary.Buckets = append(summary.Buckets, bucket)
	}
	if err := rows.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func queryInventory(ctx context.Context, db *sql.DB, filters inventoryFilters, limit int) ([]inventoryRow, error) {
	rows, err := db.QueryContext(ctx, `
SELECT
	id,
	brand,
	marketing_name,
	model,
	serial_number,
	imei1,
	imei2,
	received_on,
	returned_on,
	remark,
	solution_type,
	target_customer,
	comments,
	flow,
	metadata,
	sheet_name,
	row_index,
	COALESCE(file_id, '')
FROM inventory_items
WHERE ($1 = '' OR brand ILIKE $1)
	AND ($2 = '' OR solution_type ILIKE '%' || $2 || '%')
	AND ($3 = '' OR flow ILIKE $3)
	AND ($4 = '' OR marketing_name ILIKE '%' || $4 || '%' OR model ILIKE '%' || $4 || '%' OR serial_number ILIKE '%' || $4 || '%')
ORDER BY brand ASC, marketing_name ASC, model ASC
LIMIT $5`,
		filters.Brand, filters.Solution, filters.Flow, filters.Query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []inventoryRow
	for rows.Next() {
		var row inventoryRow
		var metadata []byte
		if err := rows.Scan(
			&row.ID,
			&row.Brand,
			&row.MarketingName,
			&row.Model,
			&row.SerialNumber,
			&row.IMEI1,
			&row.IMEI2,
			&row.ReceivedOn,
			&row.ReturnedOn,
			&row.Remark,
			&row.SolutionType,
			&row.TargetCustomer,
			&row.Comments,
			&row.Flow,
			&metadata,
			&row.SheetName,
			&row.RowIndex,
			&row.FileID,
		); err != nil {
			return nil, err
		}
		if len(metadata) > 0 && string(metadata) != "{}" {
			row.Metadata = json.RawMessage(metadata)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func queryFiles(ctx context.Context, db *sql.DB, status string, limit int) ([]fileRow, error) {
	rows, err := db.QueryContext(ctx, `
SELECT
	id,
	path,
	name,
	content_hash,
	status,
	inserted_count,
	updated_count,
	skipped_count,
	error_count,
	error,
	duration_ms,
	started_at,
	finished_at,
	created_at,
	updated_at
FROM report_files
WHERE ($1 = '' OR status = $1)
ORDER BY updated_at DESC
LIMIT $2`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []fileRow
	for rows.Next() {
		var row fileRow
		var started, finished sql.NullTime
		if err := rows.Scan(
			&row.ID,
			&row.Path,
			&row.Name,
			&row.ContentHash,
			&row.Status,
			&row.InsertedCount,
			&row.UpdatedCount,
			&row.SkippedCount,
			&row.ErrorCount,
			&row.Error,
			&row.DurationMS,
			&started,
			&finished,
			&row.CreatedAt,
			&row.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if started.Valid {
			t := started.Time.UTC()
			row.StartedAt = &t
		}
		if finished.Valid {
			t := finished.Time.UTC()
			row.FinishedAt = &t
		}
		row.CreatedAt = row.CreatedAt.UTC()
		row.UpdatedAt = row.UpdatedAt.UTC()
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func fileExists(ctx context.Context, db *sql.DB, fileID string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM report_files WHERE id = $1)`, fileID,
	).Scan(&exists)
	return exists, err
}

func queryFileErrors(ctx context.Context, db *sql.DB, fileID string) ([]fileErrorRow, error) {
	rows, err := db.QueryContext(ctx, `
SELECT sheet, row_index, column_name, message, created_at
FROM ingest_errors
WHERE file_id = $1
ORDER BY sheet ASC, row_index ASC`, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []fileErrorRow{}
	for rows.Next() {
		var row fileErrorRow
		if err := rows.Scan(&row.Sheet, &row.RowIndex, &row.ColumnName, &row.Message, &row.CreatedAt); err != nil {
			return nil, err
		}
		row.CreatedAt = row.CreatedAt.UTC()
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func parseDeviceFilters(r *http.Request) (deviceFilters, error) {
	filters := deviceFilters{
		Brand:    r.URL.Query().Get("brand"),
		Region:   r.URL.Query().Get("region"),
		Customer: r.URL.Query().Get("customer"),
		Solution: r.URL.Query().Get("solution"),
		Query:    r.URL.Query().Get("q"),
	}
	status := r.URL.Query().Get("status")
	if status != "" {
		normalized := ingest.ParseStatus(status)
		if normalized == ingest.StatusNone {
			return filters, errors.New("status must be one of NotStarted, Testing, Completed, Issue, Cancelled")
		}
		filters.Status = string(normalized)
	}
	return filters, nil
}

func parseLimit(r *http.Request) (int, error) {
	value := r.URL.Query().Get("limit")
	if value == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(value)
	if err != nil || limit < 1 {
		return 0, errors.New("limit must be a positive integer")
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, nil
}

func resolveGroupBy(groupBy string) (string, bool, error) {
	switch groupBy {
	case "brand":
		return "brand", false, nil
	case "status":
		return "status", false, nil
	case "region":
		return "target_region", true, nil
	case "customer":
		return "target_customer", true, nil
	case "solution":
		return "target_solution", true, nil
	default:
		return "", false, errors.New("group_by must be one of brand, status, region, customer, solution")
	}
}

func resolveRunStatus(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	status := strings.ToUpper(strings.TrimSpace(value))
	switch status {
	case ingest.RunPending, ingest.RunProcessing, ingest.RunCompleted, ingest.RunError:
		return status, nil
	default:
		return "", errors.New("status must be one of pending, processing, completed, error")
	}
}

func formatDate(value sql.NullTime) *string {
	if !value.Valid {
		return nil
	}
	formatted := value.Time.UTC().Format(dateLayout)
	return &formatted
}
