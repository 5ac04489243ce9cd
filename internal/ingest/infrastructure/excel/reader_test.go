package excel

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", "Testing")
	_ = f.SetCellValue("Testing", "A1", "Device")
	_ = f.SetCellValue("Testing", "B1", "Model")
	_ = f.SetCellValue("Testing", "A2", "Orion X")
	_ = f.SetCellValue("Testing", "B2", "OX-100")

	if _, err := f.NewSheet("Inventario"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	_ = f.SetCellValue("Inventario", "A1", "Serial Number")
	_ = f.SetCellValue("Inventario", "A2", "SN123")

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestReaderOpen(t *testing.T) {
	sheets, err := NewReader().Open(buildWorkbook(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(sheets) != 2 {
		t.Fatalf("expected 2 sheets, got %d", len(sheets))
	}
	if sheets[0].Name != "Testing" || sheets[1].Name != "Inventario" {
		t.Fatalf("unexpected sheet order: %s, %s", sheets[0].Name, sheets[1].Name)
	}
	if len(sheets[0].Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(sheets[0].Rows))
	}
	if sheets[0].Rows[1][0] != "Orion X" || sheets[0].Rows[1][1] != "OX-100" {
		t.Fatalf("unexpected cells: %v", sheets[0].Rows[1])
	}
	if sheets[1].Rows[1][0] != "SN123" {
		t.Fatalf("unexpected inventory cell: %v", sheets[1].Rows[1])
	}
}

func TestReaderOpenRejectsGarbage(t *testing.T) {
	if _, err := NewReader().Open([]byte("not a zip archive")); err == nil {
		t.Fatal("expected error for non-workbook bytes")
	}
}
