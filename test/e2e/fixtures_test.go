package e2e

import (
	"math"
	"testing"

	"github.com/hyperjump/bookrec/internal/ingest"
)

func TestCatalogBytes_AllFormatsIngestible(t *testing.T) {
	books := BuildCorpus().Books[:3]
	for _, ext := range CatalogFormats {
		ext := ext
		t.Run(ext, func(t *testing.T) {
			content, err := CatalogBytes(ext, books)
			if err != nil {
				t.Fatalf("CatalogBytes: %v", err)
			}
			got, err := ingest.ReadBytes(content, ext)
			if err != nil {
				t.Fatalf("ReadBytes: %v", err)
			}
			if len(got) != len(books) {
				t.Fatalf("got %d books, want %d", len(got), len(books))
			}
			for i, b := range got {
				if b.ID != books[i].ID || b.Title != books[i].Title {
					t.Errorf("book %d = %s %q, want %s %q", i, b.ID, b.Title, books[i].ID, books[i].Title)
				}
				if b.Price == nil || math.Abs(*b.Price-books[i].Price) > 1e-9 {
					t.Errorf("book %d price = %v, want %v", i, b.Price, books[i].Price)
				}
				if b.ReviewSummary == nil || *b.ReviewSummary != books[i].Summary {
					t.Errorf("book %d summary = %v", i, b.ReviewSummary)
				}
			}
		})
	}
}

func TestCatalogBytes_unsupported(t *testing.T) {
	if _, err := CatalogBytes(".pdf", nil); err == nil {
		t.Error("expected error for .pdf")
	}
}
