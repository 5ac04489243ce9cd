package application

import (
	"fmt"
	"sort"
	"strings"

	ingest "github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/domain"
)

// ExtractDevices walks a device/testing sheet and returns every valid record
// below the header row plus the parse errors collected along the way. A row
// that fails conversion yields one error and no record; a row that converts
// but misses the identity invariant is dropped silently, since trailing
// decorative rows are expected in these sheets.
func ExtractDevices(sheet ingest.Worksheet, brandOverride, fileID string) ([]ingest.DeviceRecord, []ingest.ParseError) {
	headerRow, columns, ok := FindHeaderRow(sheet.Rows, ingest.SheetDevice)
	if !ok {
		return nil, []ingest.ParseError{ingest.NewSheetError(sheet.Name, "no valid header row found in the first 5 rows")}
	}
	var records []ingest.DeviceRecord
	var errs []ingest.ParseError
	for i := headerRow + 1; i < len(sheet.Rows); i++ {
		row := sheet.Rows[i]
		if rowBlank(row) {
			continue
		}
		fields, rowErr := convertRow(sheet.Name, i, row, columns)
		if rowErr != nil {
			errs = append(errs, *rowErr)
			continue
		}
		rec := ingest.DeviceRecord{
			Brand:          fields[FieldBrand],
			DeviceName:     fields[FieldDeviceName],
			Model:          fields[FieldModel],
			Build:          fields[FieldBuild],
			TAC:            fields[FieldTAC],
			ApprovalDate:   fields[FieldApprovalDate],
			ScheduleDate:   fields[FieldScheduleDate],
			LaunchDate:     fields[FieldLaunchDate],
			DualSIM:        ParseYesNo(fields[FieldDualSIM]),
			TargetRegion:   fields[FieldTargetRegion],
			TargetCustomer: fields[FieldTargetCustomer],
			TargetSolution: fields[FieldTargetSolution],
			Comments:       fields[FieldComments],
			Tester:         fields[FieldTester],
			Contact:        fields[FieldContact],
			Priority:       fields[FieldPriority],
		}
		if !rec.Valid() {
			continue
		}
		rec.Status = ingest.ParseStatus(fields[FieldStatus])
		if brandOverride != "" {
			rec.Brand = brandOverride
		}
		rec.SheetName = sheet.Name
		rec.RowIndex = i
		rec.FileID = fileID
		rec.Fingerprint = ingest.DeviceFingerprint(rec)
		records = append(records, rec)
	}
	return records, errs
}

// ExtractInventory walks an inventory sheet. Resolved columns without a
// dedicated inventory slot and unresolved columns both land in the record's
// metadata, keyed by canonical field name and lowercased header text
// respectively, so nothing an inventory sheet says is thrown away.
func ExtractInventory(sheet ingest.Worksheet, brandOverride, fileID string) ([]ingest.InventoryRecord, []ingest.ParseError) {
	headerRow, columns, ok := FindHeaderRow(sheet.Rows, ingest.SheetInventory)
	if !ok {
		return nil, []ingest.ParseError{ingest.NewSheetError(sheet.Name, "no valid header row found in the first 5 rows")}
	}
	headers := sheet.Rows[headerRow]
	var records []ingest.InventoryRecord
	var errs []ingest.ParseError
	for i := headerRow + 1; i < len(sheet.Rows); i++ {
		row := sheet.Rows[i]
		if rowBlank(row) {
			continue
		}
		fields, rowErr := convertRow(sheet.Name, i, row, columns)
		if rowErr != nil {
			errs = append(errs, *rowErr)
			continue
		}
		rec := ingest.InventoryRecord{
			Brand:          fields[FieldBrand],
			MarketingName:  fields[FieldDeviceName],
			Model:          fields[FieldModel],
			SerialNumber:   fields[FieldSerialNumber],
			IMEI1:          fields[FieldIMEI1],
			IMEI2:          fields[FieldIMEI2],
			ReceivedOn:     fields[FieldReceivedOn],
			ReturnedOn:     fields[FieldReturnedOn],
			Remark:         fields[FieldRemark],
			SolutionType:   fields[FieldTargetSolution],
			TargetCustomer: fields[FieldTargetCustomer],
			Comments:       fields[FieldComments],
			Flow:           fields[FieldFlow],
			Metadata:       inventoryMetadata(fields, headers, columns, row),
		}
		if !rec.Valid() {
			continue
		}
		if brandOverride != "" {
			rec.Brand = brandOverride
		}
		rec.SheetName = sheet.Name
		rec.RowIndex = i
		rec.FileID = fileID
		rec.Fingerprint = ingest.InventoryFingerprint(rec)
		records = append(records, rec)
	}
	return records, errs
}

// inventorySlots are the canonical fields with a dedicated column on the
// inventory record itself. Every other resolved field goes to metadata.
var inventorySlots = map[string]bool{
	FieldBrand:          true,
	FieldDeviceName:     true,
	FieldModel:          true,
	FieldSerialNumber:   true,
	FieldIMEI1:          true,
	FieldIMEI2:          true,
	FieldReceivedOn:     true,
	FieldReturnedOn:     true,
	FieldRemark:         true,
	FieldTargetSolution: true,
	FieldTargetCustomer: true,
	FieldComments:       true,
	FieldFlow:           true,
}

func inventoryMetadata(fields map[string]string, headers []string, columns map[int]string, row []string) map[string]string {
	meta := make(map[string]string)
	for field, value := range fields {
		if !inventorySlots[field] && value != "" {
			meta[field] = value
		}
	}
	for pos, header := range headers {
		if _, mapped := columns[pos]; mapped {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(header))
		if key == "" || pos >= len(row) {
			continue
		}
		if value := strings.TrimSpace(row[pos]); value != "" {
			meta[key] = value
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

// convertRow applies the column map and per-field normalization to one data
// row. The first failing cell aborts the row with a ParseError; rows never
// abort the sheet.
func convertRow(sheetName string, rowIdx int, row []string, columns map[int]string) (map[string]string, *ingest.ParseError) {
	positions := make([]int, 0, len(columns))
	for pos := range columns {
		positions = append(positions, pos)
	}
	sort.Ints(positions)

	fields := make(map[string]string, len(columns))
	for _, pos := range positions {
		if pos >= len(row) {
			continue
		}
		field := columns[pos]
		value, ok := NormalizeField(field, row[pos])
		if !ok {
			err := ingest.NewRowError(sheetName, rowIdx, field,
				fmt.Sprintf("unrecognized date %q, row flagged for review", strings.TrimSpace(row[pos])))
			return nil, &err
		}
		if value == "" {
			continue
		}
		fields[field] = value
	}
	return fields, nil
}

func rowBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
