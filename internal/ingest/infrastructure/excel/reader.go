package excel

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	ingest "github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/domain"
)

// Reader opens xlsx/xlsm workbooks and flattens every sheet to string cells.
// Formula cells yield their last computed value, date cells their formatted
// text, rich-text cells their plain content.
type Reader struct{}

// NewReader constructs a Reader.
func NewReader() Reader {
	return Reader{}
}

// Open implements ingest.WorkbookOpener over in-memory workbook bytes.
func (Reader) Open(data []byte) ([]ingest.Worksheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheets := make([]ingest.Worksheet, 0, len(names))
	for _, name := range names {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", name, err)
		}
		sheets = append(sheets, ingest.Worksheet{Name: name, Rows: rows})
	}
	return sheets, nil
}
