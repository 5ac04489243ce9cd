package postgres

import (
	"context"
	"database/sql"
	"errors"
)

// schemaStatements create every table the reporting pipeline persists to.
// All DDL is idempotent so EnsureSchema can run on every boot.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS report_files (
	id TEXT PRIMARY KEY,
	path TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	content_hash TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	inserted_count INTEGER NOT NULL DEFAULT 0,
	updated_count INTEGER NOT NULL DEFAULT 0,
	skipped_count INTEGER NOT NULL DEFAULT 0,
	error_count INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL DEFAULT 0,
	started_at TIMESTAMPTZ,
	finished_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_report_files_content_hash ON report_files (content_hash)`,
	`CREATE TABLE IF NOT EXISTS devices (
	id TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL UNIQUE,
	brand TEXT NOT NULL DEFAULT '',
	device_name TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	build TEXT NOT NULL DEFAULT '',
	tac TEXT NOT NULL DEFAULT '',
	approval_date DATE,
	schedule_date DATE,
	launch_date DATE,
	dual_sim BOOLEAN NOT NULL DEFAULT FALSE,
	target_region TEXT NOT NULL DEFAULT '',
	target_customer TEXT NOT NULL DEFAULT '',
	target_solution TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	comments TEXT NOT NULL DEFAULT '',
	tester TEXT NOT NULL DEFAULT '',
	contact TEXT NOT NULL DEFAULT '',
	priority TEXT NOT NULL DEFAULT '',
	sheet_name TEXT NOT NULL DEFAULT '',
	row_index INTEGER NOT NULL DEFAULT 0,
	file_id TEXT REFERENCES report_files (id) ON DELETE SET NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_devices_brand ON devices (brand)`,
	`CREATE INDEX IF NOT EXISTS idx_devices_status ON devices (status)`,
	`CREATE TABLE IF NOT EXISTS inventory_items (
	id TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL UNIQUE,
	brand TEXT NOT NULL DEFAULT '',
	marketing_name TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	serial_number TEXT NOT NULL DEFAULT '',
	imei1 TEXT NOT NULL DEFAULT '',
	imei2 TEXT NOT NULL DEFAULT '',
	received_on TEXT NOT NULL DEFAULT '',
	returned_on TEXT NOT NULL DEFAULT '',
	remark TEXT NOT NULL DEFAULT '',
	solution_type TEXT NOT NULL DEFAULT '',
	target_customer TEXT NOT NULL DEFAULT '',
	comments TEXT NOT NULL DEFAULT '',
	flow TEXT NOT NULL DEFAULT '',
	metadata JSONB NOT NULL DEFAULT '{}',
	sheet_name TEXT NOT NULL DEFAULT '',
	row_index INTEGER NOT NULL DEFAULT 0,
	file_id TEXT REFERENCES report_files (id) ON DELETE SET NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_items_brand ON inventory_items (brand)`,
	`CREATE TABLE IF NOT EXISTS ingest_errors (
	id TEXT PRIMARY KEY,
	file_id TEXT NOT NULL REFERENCES report_files (id) ON DELETE CASCADE,
	sheet TEXT NOT NULL DEFAULT '',
	row_index INTEGER NOT NULL DEFAULT 0,
	column_name TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_ingest_errors_file ON ingest_errors (file_id)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
	id TEXT PRIMARY KEY,
	actor TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL,
	resource_type TEXT NOT NULL DEFAULT '',
	resource_id TEXT NOT NULL DEFAULT '',
	metadata JSONB,
	payload_digest TEXT NOT NULL DEFAULT '',
	ip TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
)`,
}

// EnsureSchema creates the reporting tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("ingest schema: nil db")
	}
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
