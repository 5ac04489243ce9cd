package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DeviceFingerprint computes the content identity of a device record from its
// fixed key fields. Identical logical records always hash the same regardless
// of source file or row, which makes the digest the natural upsert key.
func DeviceFingerprint(r DeviceRecord) string {
	return fingerprintOf(
		r.DeviceName,
		r.Model,
		r.TAC,
		r.Build,
		r.TargetRegion,
		r.TargetSolution,
		r.TargetCustomer,
	)
}

// InventoryFingerprint computes the content identity of an inventory record.
func InventoryFingerprint(r InventoryRecord) string {
	return fingerprintOf(
		r.Brand,
		r.Model,
		r.SerialNumber,
		r.IMEI1,
		r.IMEI2,
		r.SolutionType,
		r.TargetCustomer,
		r.Flow,
	)
}

// FileFingerprint hashes raw workbook bytes for the change-detection gate.
func FileFingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func fingerprintOf(parts ...string) string {
	normalized := make([]string, len(parts))
	for i, part := range parts {
		normalized[i] = strings.ToLower(strings.TrimSpace(part))
	}
	sum := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(sum[:])
}
