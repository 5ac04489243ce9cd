package application

import (
	"testing"

	ingest "github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/domain"
)

func TestResolveField(t *testing.T) {
	cases := []struct {
		header string
		want   string
		wantOK bool
	}{
		{"Model", FieldModel, true},
		{"  MODEL  ", FieldModel, true},
		{"Device Name", FieldDeviceName, true},
		{"marketing name", FieldDeviceName, true},
		{"Dual SIM", FieldDualSIM, true},
		{"Schedule Date", FieldScheduleDate, true},
		{"Serial Number", FieldSerialNumber, true},
		{"Status", FieldStatus, true},
		{"Status Options", "", false},
		{"Unnamed: 3", "", false},
		{"Legend (do not edit)", "", false},
		{"", "", false},
		{"warehouse shelf", "", false},
	}
	for _, tc := range cases {
		got, ok := ResolveField(tc.header)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("ResolveField(%q) = (%q, %v), want (%q, %v)", tc.header, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestBuildColumnMap(t *testing.T) {
	headers := []string{"Brand", "Device", "Model", "junk", "Status", "Unnamed: 5"}
	columns := BuildColumnMap(headers)
	want := map[int]string{0: FieldBrand, 1: FieldDeviceName, 2: FieldModel, 4: FieldStatus}
	if len(columns) != len(want) {
		t.Fatalf("expected %d resolved columns, got %d (%v)", len(want), len(columns), columns)
	}
	for pos, field := range want {
		if columns[pos] != field {
			t.Errorf("column %d: expected %s, got %s", pos, field, columns[pos])
		}
	}
}

func TestBuildColumnMapLeftmostWins(t *testing.T) {
	columns := BuildColumnMap([]string{"Comments", "Model", "Notes"})
	if columns[0] != FieldComments {
		t.Fatalf("expected column 0 to resolve comments, got %q", columns[0])
	}
	if _, ok := columns[2]; ok {
		t.Fatal("expected duplicate comments column to be skipped")
	}
}

func TestFindHeaderRow(t *testing.T) {
	rows := [][]string{
		{"Device Validation Tracker"},
		{},
		{"Brand", "Device", "Model", "Status"},
		{"Acme", "Orion", "OX-100", "Testing"},
	}
	idx, columns, ok := FindHeaderRow(rows, ingest.SheetDevice)
	if !ok {
		t.Fatal("expected header row to be found")
	}
	if idx != 2 {
		t.Fatalf("expected header at row 2, got %d", idx)
	}
	if len(columns) != 4 {
		t.Fatalf("expected 4 resolved columns, got %d", len(columns))
	}
}

func TestFindHeaderRowThresholds(t *testing.T) {
	rows := [][]string{{"Model", "Serial Number", "other", "stuff"}}
	if _, _, ok := FindHeaderRow(rows, ingest.SheetDevice); ok {
		t.Fatal("two resolved columns must not satisfy a device sheet")
	}
	if _, _, ok := FindHeaderRow(rows, ingest.SheetInventory); !ok {
		t.Fatal("two resolved columns must satisfy an inventory sheet")
	}
}

func TestFindHeaderRowScanBound(t *testing.T) {
	rows := [][]string{
		{"banner"}, {"banner"}, {"banner"}, {"banner"}, {"banner"},
		{"Brand", "Device", "Model", "Status"},
	}
	if _, _, ok := FindHeaderRow(rows, ingest.SheetDevice); ok {
		t.Fatal("header beyond the fifth row must not be found")
	}
}
