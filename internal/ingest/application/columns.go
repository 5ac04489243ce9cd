package application

import (
	"strings"

	ingest "github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/domain"
)

const (
	// headerScanLimit bounds how deep into a sheet the header row may sit.
	// Real workbooks put a title banner or a legend above the table, never
	// more than a few rows of it.
	headerScanLimit = 5

	minDeviceColumns    = 3
	minInventoryColumns = 2
)

// ResolveField maps one raw header cell to its canonical field name. The
// second return is false when the header is empty, matches the ignore list
// or is not a known alias.
func ResolveField(header string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(header))
	if key == "" {
		return "", false
	}
	for _, marker := range headerIgnoreList {
		if strings.Contains(key, marker) {
			return "", false
		}
	}
	field, ok := aliasIndex[key]
	return field, ok
}

// BuildColumnMap resolves every cell of a candidate header row. The result
// maps column positions to canonical fields; unresolved columns are absent.
// When two columns resolve to the same field the leftmost one wins.
func BuildColumnMap(headers []string) map[int]string {
	columns := make(map[int]string)
	seen := make(map[string]bool)
	for i, h := range headers {
		field, ok := ResolveField(h)
		if !ok || seen[field] {
			continue
		}
		columns[i] = field
		seen[field] = true
	}
	return columns
}

// FindHeaderRow scans the first rows of a sheet for the row that resolves
// enough known columns to be the header. Device sheets need at least three
// recognized columns, inventory sheets two, since inventory layouts are
// sparser. Returns the header row index and its column map.
func FindHeaderRow(rows [][]string, kind ingest.SheetKind) (int, map[int]string, bool) {
	minColumns := minDeviceColumns
	if kind == ingest.SheetInventory {
		minColumns = minInventoryColumns
	}
	limit := len(rows)
	if limit > headerScanLimit {
		limit = headerScanLimit
	}
	for i := 0; i < limit; i++ {
		columns := BuildColumnMap(rows[i])
		if len(columns) >= minColumns {
			return i, columns, true
		}
	}
	return 0, nil, false
}
