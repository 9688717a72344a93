// Package models defines core data structures for books, recommendation queries, and results.
package models

// Book is one catalog record. Optional metadata is nil when the source row had no value.
type Book struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Price         *float64 `json:"price,omitempty"`
	ReviewScore   *float64 `json:"review_score,omitempty"`
	ReviewSummary *string  `json:"review_summary,omitempty"`
	// Text is the blob the book's term vector was built from.
	Text string `json:"text,omitempty"`
}

// Float returns a pointer to v, for populating optional numeric fields.
func Float(v float64) *float64 {
	return &v
}

// String returns a pointer to s, for populating optional text fields.
func String(s string) *string {
	return &s
}
