package ingest

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// readExcel reads the first sheet of a workbook whose first row is a header.
func readExcel(content []byte) ([]record, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrMissingTitle
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	return fromRows(rows)
}
