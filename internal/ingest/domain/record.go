package ingest

import (
	"context"
	"strings"
)

// DeviceRecord is one row extracted from a device/testing sheet.
type DeviceRecord struct {
	Brand      string
	DeviceName string
	Model      string
	Build      string
	TAC        string

	ApprovalDate string
	ScheduleDate string
	LaunchDate   string

	DualSIM bool

	TargetRegion   string
	TargetCustomer string
	TargetSolution string

	Status Status

	Comments string
	Tester   string
	Contact  string
	Priority string

	SheetName   string
	RowIndex    int
	FileID      string
	Fingerprint string
}

// Valid reports whether the record carries enough identity to keep.
// A device row needs a device name or a model; everything else is optional.
func (r DeviceRecord) Valid() bool {
	return strings.TrimSpace(r.DeviceName) != "" || strings.TrimSpace(r.Model) != ""
}

// InventoryRecord is one row extracted from an inventory sheet.
type InventoryRecord struct {
	Brand         string
	MarketingName string
	Model         string
	SerialNumber  string
	IMEI1         string
	IMEI2         string

	ReceivedOn string
	ReturnedOn string

	Remark         string
	SolutionType   string
	TargetCustomer string
	Comments       string
	Flow           string

	// Metadata keeps values from columns the alias table does not know.
	Metadata map[string]string

	SheetName   string
	RowIndex    int
	FileID      string
	Fingerprint string
}

// Valid reports whether the inventory row identifies a physical unit:
// at least one of model, TAC, name, serial number or IMEI1 must be present.
// TAC has no dedicated slot on inventory rows and is carried in Metadata.
func (r InventoryRecord) Valid() bool {
	for _, v := range []string{r.Model, r.MarketingName, r.SerialNumber, r.IMEI1, r.Metadata["tac"]} {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// Batch groups every record extracted from one workbook.
type Batch struct {
	Devices   []DeviceRecord
	Inventory []InventoryRecord
}

// Empty reports whether the batch holds no records at all.
func (b Batch) Empty() bool {
	return len(b.Devices) == 0 && len(b.Inventory) == 0
}

// UpsertStats aggregates the outcome of an upsert call.
type UpsertStats struct {
	Inserted int
	Updated  int
	Skipped  int
}

// Add merges another stats value into this one.
func (s *UpsertStats) Add(other UpsertStats) {
	s.Inserted += other.Inserted
	s.Updated += other.Updated
	s.Skipped += other.Skipped
}

// RecordStore persists extracted records keyed by fingerprint.
// One call covers one file's batch inside a single transaction.
type RecordStore interface {
	UpsertByFingerprint(ctx context.Context, fileID string, batch Batch) (UpsertStats, error)
}
