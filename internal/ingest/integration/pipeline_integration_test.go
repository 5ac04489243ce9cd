package integration_test

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/xuri/excelize/v2"

	ingestapp "github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/application"
	ingestpg "github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/infrastructure/postgres"

	"github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/infrastructure/excel"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return db
}

func cleanupTables(ctx context.Context, db *sql.DB) {
	for _, table := range []string{"ingest_errors", "devices", "inventory_items", "report_files", "audit_logs"} {
		_, _ = db.ExecContext(ctx, "DELETE FROM "+table)
	}
}

func buildTrackerWorkbook(t *testing.T, status string) []byte {
	t.Helper()
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", "Testing")
	headers := []string{"Brand", "Device", "Model", "Schedule Date", "Region", "Status"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue("Testing", cell, h)
	}
	rows := [][]string{
		{"Acme", "Orion X", "OX-100", "15/03/2024", "peru, BHAMAS", status},
		{"Acme", "Lyra", "LY-20", "2024-04-01", "Chile", status},
		{"Acme", "Broken", "BR-1", "not a date", "Peru", status},
	}
	for ri, row := range rows {
		for ci, value := range row {
			cell, _ := excelize.CoordinatesToCellName(ci+1, ri+2)
			_ = f.SetCellValue("Testing", cell, value)
		}
	}

	if _, err := f.NewSheet("Inventario"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	invHeaders := []string{"Brand", "Model", "Serial Number", "Flow"}
	for i, h := range invHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue("Inventario", cell, h)
	}
	invRow := []string{"Acme", "OX-100", "SN123", "IN"}
	for ci, value := range invRow {
		cell, _ := excelize.CoordinatesToCellName(ci+1, 2)
		_ = f.SetCellValue("Inventario", cell, value)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestPipeline_ClosedLoop(t *testing.T) {
	db := openDB(t)
	defer db.Close()
	ctx := context.Background()

	if err := ingestpg.EnsureSchema(ctx, db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	cleanupTables(ctx, db)

	processor := ingestapp.NewProcessor(
		excel.NewReader(),
		ingestpg.NewReportStore(db),
		ingestpg.NewFileStore(db),
		ingestpg.NewErrorStore(db),
		nil,
		nil,
	)

	data := buildTrackerWorkbook(t, "Testing")
	result, err := processor.ProcessBytes(ctx, "itest/Tracker Samsung.xlsx", data, "")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if result.Unchanged {
		t.Fatal("first run must not short-circuit")
	}
	if result.Inserted != 3 {
		t.Fatalf("expected 3 inserted (2 devices + 1 inventory), got %d", result.Inserted)
	}
	if result.Updated != 0 || result.Skipped != 0 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 parse error, got %d", len(result.Errors))
	}

	var deviceCount int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices`).Scan(&deviceCount); err != nil {
		t.Fatalf("count devices: %v", err)
	}
	if deviceCount != 2 {
		t.Fatalf("expected 2 device rows, got %d", deviceCount)
	}

	var brand string
	if err := db.QueryRowContext(ctx, `SELECT brand FROM devices LIMIT 1`).Scan(&brand); err != nil {
		t.Fatalf("read brand: %v", err)
	}
	if brand != "Samsung" {
		t.Fatalf("expected file-name brand override Samsung, got %q", brand)
	}

	var fileStatus string
	var errorCount int
	if err := db.QueryRowContext(ctx, `SELECT status, error_count FROM report_files WHERE id = $1`, result.FileID).Scan(&fileStatus, &errorCount); err != nil {
		t.Fatalf("read file run: %v", err)
	}
	if fileStatus != "COMPLETED" || errorCount != 1 {
		t.Fatalf("expected COMPLETED run with 1 error, got %s/%d", fileStatus, errorCount)
	}

	var storedErrors int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ingest_errors WHERE file_id = $1`, result.FileID).Scan(&storedErrors); err != nil {
		t.Fatalf("count errors: %v", err)
	}
	if storedErrors != 1 {
		t.Fatalf("expected 1 stored parse error, got %d", storedErrors)
	}

	// Same bytes again: the content-hash gate must short-circuit.
	again, err := processor.ProcessBytes(ctx, "itest/Tracker Samsung.xlsx", data, "")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !again.Unchanged {
		t.Fatal("expected unchanged short-circuit on identical bytes")
	}

	// Changed bytes with identical record identities: updates, no inserts.
	changed := buildTrackerWorkbook(t, "Completed")
	third, err := processor.ProcessBytes(ctx, "itest/Tracker Samsung.xlsx", changed, "")
	if err != nil {
		t.Fatalf("third run: %v", err)
	}
	if third.Inserted != 0 || third.Updated != 3 {
		t.Fatalf("expected 0 inserted and 3 updated, got %d/%d", third.Inserted, third.Updated)
	}

	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices`).Scan(&deviceCount); err != nil {
		t.Fatalf("recount devices: %v", err)
	}
	if deviceCount != 2 {
		t.Fatalf("expected still 2 device rows after update, got %d", deviceCount)
	}

	var status string
	if err := db.QueryRowContext(ctx, `SELECT status FROM devices WHERE device_name = 'Orion X'`).Scan(&status); err != nil {
		t.Fatalf("read status: %v", err)
	}
	if status != "Completed" {
		t.Fatalf("expected updated status Completed, got %q", status)
	}
}
