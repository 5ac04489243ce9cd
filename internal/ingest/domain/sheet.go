package ingest

import "strings"

// SheetKind routes a worksheet to its extraction path.
type SheetKind string

const (
	SheetDevice    SheetKind = "device"
	SheetInventory SheetKind = "inventory"
)

var inventoryNameMarkers = []string{"inventory", "inventario"}

// ClassifySheet decides the extraction path from the worksheet display name
// alone. Any name containing an inventory marker (case-insensitive) is an
// inventory sheet; everything else is treated as a device/testing sheet.
func ClassifySheet(name string) SheetKind {
	lowered := strings.ToLower(name)
	for _, marker := range inventoryNameMarkers {
		if strings.Contains(lowered, marker) {
			return SheetInventory
		}
	}
	return SheetDevice
}
