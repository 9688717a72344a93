package e2e

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// CatalogFormats is the list of catalog file extensions used in E2E training tests.
var CatalogFormats = []string{".csv", ".tsv", ".json", ".jsonl", ".xlsx"}

var catalogHeader = []string{"book_id", "book_title", "book_price", "review_score", "review_summary"}

func catalogRow(b CatalogBook) []string {
	return []string{
		b.ID,
		b.Title,
		strconv.FormatFloat(b.Price, 'f', 2, 64),
		strconv.FormatFloat(b.ReviewScore, 'f', 1, 64),
		b.Summary,
	}
}

// CatalogBytes renders books as a catalog file of the given extension.
func CatalogBytes(ext string, books []CatalogBook) ([]byte, error) {
	switch ext {
	case ".csv":
		return delimited(books, ',')
	case ".tsv":
		return delimited(books, '\t')
	case ".json":
		return json.Marshal(catalogObjects(books))
	case ".jsonl":
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		for _, obj := range catalogObjects(books) {
			if err := enc.Encode(obj); err != nil {
				return nil, err
			}
		}
		return buf.Bytes(), nil
	case ".xlsx":
		return workbook(books)
	}
	return nil, fmt.Errorf("unsupported catalog format %q", ext)
}

func delimited(books []CatalogBook, comma rune) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = comma
	if err := w.Write(catalogHeader); err != nil {
		return nil, err
	}
	for _, b := range books {
		if err := w.Write(catalogRow(b)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func catalogObjects(books []CatalogBook) []map[string]interface{} {
	out := make([]map[string]interface{}, len(books))
	for i, b := range books {
		out[i] = map[string]interface{}{
			"book_id":        b.ID,
			"book_title":     b.Title,
			"book_price":     b.Price,
			"review_score":   b.ReviewScore,
			"review_summary": b.Summary,
		}
	}
	return out
}

func workbook(books []CatalogBook) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetRow("Sheet1", "A1", &catalogHeader); err != nil {
		return nil, err
	}
	for i, b := range books {
		row := catalogRow(b)
		if err := f.SetSheetRow("Sheet1", fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
