package apihttp

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// ExportDevicesXLSXHandler serves the filtered device list as a workbook.
type ExportDevicesXLSXHandler struct {
	db *sql.DB
}

// NewExportDevicesXLSXHandler constructs an ExportDevicesXLSXHandler.
func NewExportDevicesXLSXHandler(db *sql.DB) *ExportDevicesXLSXHandler {
	return &ExportDevicesXLSXHandler{db: db}
}

// ServeHTTP handles GET /api/v1/exports/devices.xlsx.
func (h *ExportDevicesXLSXHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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
	data, err := BuildDevicesXLSX(devices)
	if err != nil {
		http.Error(w, "export xlsx error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ExportDevicesCSVHandler serves the filtered device list as CSV.
type ExportDevicesCSVHandler struct {
	db *sql.DB
}

// NewExportDevicesCSVHandler constructs an ExportDevicesCSVHandler.
func NewExportDevicesCSVHandler(db *sql.DB) *ExportDevicesCSVHandler {
	return &ExportDevicesCSVHandler{db: db}
}

// ServeHTTP handles GET /api/v1/exports/devices.csv.
func (h *ExportDevicesCSVHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	writer := csv.NewWriter(w)
	_ = writer.Write(deviceExportHeaders)
	for _, row := range devices {
		_ = writer.Write([]string{
			row.Brand,
			row.DeviceName,
			row.Model,
			row.Build,
			row.TAC,
			orEmpty(row.ApprovalDate),
			orEmpty(row.ScheduleDate),
			orEmpty(row.LaunchDate),
			strconv.FormatBool(row.DualSIM),
			row.TargetRegion,
			row.TargetCustomer,
			row.TargetSolution,
			row.Status,
			row.Comments,
			row.Tester,
			row.Contact,
			row.Priority,
		})
	}
	writer.Flush()
}

var deviceExportHeaders = []string{
	"brand",
	"device_name",
	"model",
	"build",
	"tac",
	"approval_date",
	"schedule_date",
	"launch_date",
	"dual_sim",
	"target_region",
	"target_customer",
	"target_solution",
	"status",
	"comments",
	"tester",
	"contact",
	"priority",
}

// BuildDevicesXLSX renders a device list workbook with one header row.
func BuildDevicesXLSX(devices []deviceRow) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "Devices"
	f.SetSheetName("Sheet1", sheet)

	for i, header := range deviceExportHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(sheet, cell, header)
	}

	for i, row := range devices {
		rowNum := i + 2
		values := []any{
			row.Brand,
			row.DeviceName,
			row.Model,
			row.Build,
			row.TAC,
			orEmpty(row.ApprovalDate),
			orEmpty(row.ScheduleDate),
			orEmpty(row.LaunchDate),
			row.DualSIM,
			row.TargetRegion,
			row.TargetCustomer,
			row.TargetSolution,
			row.Status,
			row.Comments,
			row.Tester,
			row.Contact,
			row.Priority,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
			if err != nil {
				return nil, err
			}
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func orEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
