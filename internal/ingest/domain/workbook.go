package ingest

// Worksheet is one sheet of a workbook flattened to string cells. Rows keep
// sheet order; trailing empty cells of a row may be absent.
type Worksheet struct {
	Name string
	Rows [][]string
}

// WorkbookOpener turns raw workbook bytes into worksheets. Implementations
// must reduce rich-text cells to plain strings and formula cells to their
// last computed value.
type WorkbookOpener interface {
	Open(data []byte) ([]Worksheet, error)
}
