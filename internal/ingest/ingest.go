// Package ingest reads book catalogs from CSV, TSV, Excel, JSON, and JSON Lines files.
package ingest

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperjump/bookrec/internal/models"
)

var (
	// ErrUnsupportedFormat is returned for file extensions with no reader.
	ErrUnsupportedFormat = errors.New("unsupported catalog format")
	// ErrMissingTitle is returned when a catalog has no title column.
	ErrMissingTitle = errors.New("catalog has no title column")
	// ErrDuplicateID is returned when two books share an id.
	ErrDuplicateID = errors.New("duplicate book id")
)

// idNamespace scopes generated book ids.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("bookrec:catalog"))

// Extensions lists the catalog file extensions Read understands.
var Extensions = []string{".csv", ".tsv", ".xlsx", ".json", ".jsonl", ".ndjson"}

// Read loads the catalog at path, choosing a reader by file extension.
func Read(path string) ([]models.Book, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ReadBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ReadBytes parses content in the format given by ext (including the leading dot, e.g. ".csv").
func ReadBytes(content []byte, ext string) ([]models.Book, error) {
	var (
		records []record
		err     error
	)
	switch ext {
	case ".csv":
		records, err = readDelimited(content, ',')
	case ".tsv":
		records, err = readDelimited(content, '\t')
	case ".xlsx":
		records, err = readExcel(content)
	case ".json":
		records, err = readJSON(content)
	case ".jsonl", ".ndjson":
		records, err = readJSONLines(content)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	return toBooks(records)
}

// field is one named value of a catalog row.
type field struct {
	column string
	value  string
}

// record is a catalog row in column order.
type record []field

// column names a canonical catalog column. Unknown columns are descriptive text.
func column(name string) string {
	name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
	name = strings.Join(strings.Fields(name), "_")
	switch name {
	case "id", "book_id":
		return "id"
	case "title", "book_title":
		return "title"
	case "price", "book_price":
		return "price"
	case "review_score", "book_review_score":
		return "review_score"
	case "review_summary", "book_review_summary":
		return "review_summary"
	}
	return ""
}

// hasTitle reports whether header contains a title column.
func hasTitle(header []string) bool {
	for _, h := range header {
		if column(h) == "title" {
			return true
		}
	}
	return false
}

func toBooks(records []record) ([]models.Book, error) {
	books := make([]models.Book, 0, len(records))
	seen := make(map[string]int, len(records))
	for pos, rec := range records {
		b := toBook(rec, pos)
		if prev, dup := seen[b.ID]; dup {
			return nil, fmt.Errorf("%w: %q in rows %d and %d", ErrDuplicateID, b.ID, prev+1, pos+1)
		}
		seen[b.ID] = pos
		books = append(books, b)
	}
	return books, nil
}

func toBook(rec record, pos int) models.Book {
	var (
		b           models.Book
		set         = make(map[string]bool, 5)
		descriptive []string
	)
	for _, f := range rec {
		name := column(f.column)
		value := strings.TrimSpace(f.value)
		if name != "" && set[name] {
			name = ""
		}
		switch name {
		case "id":
			b.ID = value
		case "title":
			b.Title = Preprocess(value)
		case "price":
			if p := parseNumber(value); p != nil && *p >= 0 {
				b.Price = p
			}
		case "review_score":
			b.ReviewScore = parseNumber(value)
		case "review_summary":
			if value != "" {
				b.ReviewSummary = models.String(Preprocess(value))
			}
		default:
			if value != "" {
				descriptive = append(descriptive, value)
			}
			continue
		}
		set[name] = true
	}
	if b.ID == "" {
		b.ID = uuid.NewSHA1(idNamespace, []byte(strconv.Itoa(pos)+"\x00"+b.Title)).String()
	}

	parts := make([]string, 0, len(descriptive)+2)
	parts = append(parts, b.Title)
	parts = append(parts, descriptive...)
	if b.ReviewSummary != nil {
		parts = append(parts, *b.ReviewSummary)
	}
	b.Text = Preprocess(strings.Join(parts, " "))
	return b
}

// parseNumber returns nil for empty, unparsable, or non-finite cells. Negative prices are
// dropped by the caller.
func parseNumber(s string) *float64 {
	s = strings.TrimPrefix(strings.ReplaceAll(s, ",", ""), "$")
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return models.Float(v)
}
