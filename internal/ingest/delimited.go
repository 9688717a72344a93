package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

func readDelimited(content []byte, comma rune) ([]record, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = comma == ','
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse delimited catalog: %w", err)
	}
	return fromRows(rows)
}

// fromRows turns a header row and data rows into records. Blank rows are skipped.
func fromRows(rows [][]string) ([]record, error) {
	if len(rows) == 0 || !hasTitle(rows[0]) {
		return nil, ErrMissingTitle
	}
	header := rows[0]
	records := make([]record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		rec := make(record, 0, len(header))
		for i, name := range header {
			var value string
			if i < len(row) {
				value = row[i]
			}
			rec = append(rec, field{column: name, value: value})
		}
		records = append(records, rec)
	}
	return records, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
