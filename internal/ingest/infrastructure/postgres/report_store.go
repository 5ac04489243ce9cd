package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	ingest "github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/domain"
)

const (
	defaultDeviceTable    = "devices"
	defaultInventoryTable = "inventory_items"
)

// ReportStore persists extracted device and inventory records keyed by
// content fingerprint.
type ReportStore struct {
	db             *sql.DB
	deviceTable    string
	inventoryTable string
}

// ReportStoreOption configures the store.
type ReportStoreOption func(*ReportStore)

// WithDeviceTable overrides the device table name.
func WithDeviceTable(table string) ReportStoreOption {
	return func(s *ReportStore) {
		if table != "" {
			s.deviceTable = table
		}
	}
}

// WithInventoryTable overrides the inventory table name.
func WithInventoryTable(table string) ReportStoreOption {
	return func(s *ReportStore) {
		if table != "" {
			s.inventoryTable = table
		}
	}
}

// NewReportStore constructs a report store using the default table names.
func NewReportStore(db *sql.DB, opts ...ReportStoreOption) *ReportStore {
	store := &ReportStore{
		db:             db,
		deviceTable:    defaultDeviceTable,
		inventoryTable: defaultInventoryTable,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// UpsertByFingerprint writes one file's batch inside a single transaction.
// An existing fingerprint updates the stored row in place, a new one inserts;
// a fingerprint repeated within the batch is skipped after its first
// occurrence. Nothing is visible to readers until the whole batch commits.
func (s *ReportStore) UpsertByFingerprint(ctx context.Context, fileID string, batch ingest.Batch) (ingest.UpsertStats, error) {
	var stats ingest.UpsertStats
	if s == nil || s.db == nil {
		return stats, errors.New("report store: nil db")
	}
	if batch.Empty() {
		return stats, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, err
	}
	now := time.Now().UTC()

	seen := make(map[string]bool, len(batch.Devices))
	for _, rec := range batch.Devices {
		if seen[rec.Fingerprint] {
			stats.Skipped++
			continue
		}
		seen[rec.Fingerprint] = true
		inserted, err := s.upsertDevice(ctx, tx, fileID, rec, now)
		if err != nil {
			_ = tx.Rollback()
			return ingest.UpsertStats{}, err
		}
		if inserted {
			stats.Inserted++
		} else {
			stats.Updated++
		}
	}

	seenInv := make(map[string]bool, len(batch.Inventory))
	for _, rec := range batch.Inventory {
		if seenInv[rec.Fingerprint] {
			stats.Skipped++
			continue
		}
		seenInv[rec.Fingerprint] = true
		inserted, err := s.upsertInventory(ctx, tx, fileID, rec, now)
		if err != nil {
			_ = tx.Rollback()
			return ingest.UpsertStats{}, err
		}
		if inserted {
			stats.Inserted++
		} else {
			stats.Updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return ingest.UpsertStats{}, err
	}
	return stats, nil
}

func (s *ReportStore) upsertDevice(ctx context.Context, tx *sql.Tx, fileID string, rec ingest.DeviceRecord, now time.Time) (bool, error) {
	insert := fmt.Sprintf(`
INSERT INTO %s (
	id, fingerprint, brand, device_name, model, build, tac,
	approval_date, schedule_date, launch_date, dual_sim,
	target_region, target_customer, target_solution, status,
	comments, tester, contact, priority,
	sheet_name, row_index, file_id, created_at, updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$23
)
ON CONFLICT (fingerprint) DO NOTHING`, s.deviceTable)

	res, err := tx.ExecContext(ctx, insert,
		uuid.NewString(), rec.Fingerprint, rec.Brand, rec.DeviceName, rec.Model, rec.Build, rec.TAC,
		nullIfEmpty(rec.ApprovalDate), nullIfEmpty(rec.ScheduleDate), nullIfEmpty(rec.LaunchDate), rec.DualSIM,
		rec.TargetRegion, rec.TargetCustomer, rec.TargetSolution, string(rec.Status),
		rec.Comments, rec.Tester, rec.Contact, rec.Priority,
		rec.SheetName, rec.RowIndex, fileID, now,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 1 {
		return true, nil
	}

	update := fmt.Sprintf(`
UPDATE %s SET
	brand = $1, device_name = $2, model = $3, build = $4, tac = $5,
	approval_date = $6, schedule_date = $7, launch_date = $8, dual_sim = $9,
	target_region = $10, target_customer = $11, target_solution = $12, status = $13,
	comments = $14, tester = $15, contact = $16, priority = $17,
	sheet_name = $18, row_index = $19, file_id = $20, updated_at = $21
WHERE fingerprint = $22`, s.deviceTable)

	_, err = tx.ExecContext(ctx, update,
		rec.Brand, rec.DeviceName, rec.Model, rec.Build, rec.TAC,
		nullIfEmpty(rec.ApprovalDate), nullIfEmpty(rec.ScheduleDate), nullIfEmpty(rec.LaunchDate), rec.DualSIM,
		rec.TargetRegion, rec.TargetCustomer, rec.TargetSolution, string(rec.Status),
		rec.Comments, rec.Tester, rec.Contact, rec.Priority,
		rec.SheetName, rec.RowIndex, fileID, now, rec.Fingerprint,
	)
	return false, err
}

func (s *ReportStore) upsertInventory(ctx context.Context, tx *sql.Tx, fileID string, rec ingest.InventoryRecord, now time.Time) (bool, error) {
	metadata, err := metadataJSON(rec.Metadata)
	if err != nil {
		return false, err
	}

	insert := fmt.Sprintf(`
INSERT INTO %s (
	id, fingerprint, brand, marketing_name, model, serial_number, imei1, imei2,
	received_on, returned_on, remark, solution_type, target_customer, comments, flow,
	metadata, sheet_name, row_index, file_id, created_at, updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$20
)
ON CONFLICT (fingerprint) DO NOTHING`, s.inventoryTable)

	res, err := tx.ExecContext(ctx, insert,
		uuid.NewString(), rec.Fingerprint, rec.Brand, rec.MarketingName, rec.Model, rec.SerialNumber, rec.IMEI1, rec.IMEI2,
		rec.ReceivedOn, rec.ReturnedOn, rec.Remark, rec.SolutionType, rec.TargetCustomer, rec.Comments, rec.Flow,
		metadata, rec.SheetName, rec.RowIndex, fileID, now,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 1 {
		return true, nil
	}

	update := fmt.Sprintf(`
UPDATE %s SET
	brand = $1, marketing_name = $2, model = $3, serial_number = $4, imei1 = $5, imei2 = $6,
	received_on = $7, returned_on = $8, remark = $9, solution_type = $10, target_customer = $11,
	comments = $12, flow = $13, metadata = $14, sheet_name = $15, row_index = $16, file_id = $17,
	updated_at = $18
WHERE fingerprint = $19`, s.inventoryTable)

	_, err = tx.ExecContext(ctx, update,
		rec.Brand, rec.MarketingName, rec.Model, rec.SerialNumber, rec.IMEI1, rec.IMEI2,
		rec.ReceivedOn, rec.ReturnedOn, rec.Remark, rec.SolutionType, rec.TargetCustomer,
		rec.Comments, rec.Flow, metadata, rec.SheetName, rec.RowIndex, fileID, now, rec.Fingerprint,
	)
	return false, err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func metadataJSON(meta map[string]string) ([]byte, error) {
	if len(meta) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(meta)
}
