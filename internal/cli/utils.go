// Package cli provides CLI output helpers for bookrec.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hyperjump/bookrec/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact is one recommendation per line.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat returns the format named s.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
}

// WriteRecommendations writes recommendations to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteRecommendations(w io.Writer, response *models.RecommendationResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	case OutputCompact:
		for _, rec := range response.Recommendations {
			fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\n", rec.Rank, rec.Score, rec.ItemID, rec.Title)
		}
		return nil
	default:
		writeRecommendationsText(w, response)
		return nil
	}
}

func writeRecommendationsText(w io.Writer, response *models.RecommendationResponse) {
	fmt.Fprintf(w, "\nFound %d recommendations in %dms\n\n", response.Count, response.QueryTime)
	for _, rec := range response.Recommendations {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", rec.Rank, rec.Score)
		fmt.Fprintf(w, "ID: %s\n", rec.ItemID)
		fmt.Fprintf(w, "Title: %s\n", rec.Title)
		if rec.Price != nil {
			fmt.Fprintf(w, "Price: %.2f\n", *rec.Price)
		}
		if rec.ReviewScore != nil {
			fmt.Fprintf(w, "Review score: %.1f\n", *rec.ReviewScore)
		}
		if rec.ReviewSummary != nil && *rec.ReviewSummary != "" {
			fmt.Fprintf(w, "\n%s\n", TruncateWords(*rec.ReviewSummary, 40))
		}
		fmt.Fprintln(w)
	}
}

// WriteStatus writes a server or local status map. Known byte counts are humanized in text form.
func WriteStatus(w io.Writer, status map[string]interface{}, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	if model, ok := status["model"].(map[string]interface{}); ok {
		if loaded, _ := model["loaded"].(bool); loaded {
			fmt.Fprintf(w, "Model: %v books, %v terms\n", model["items"], model["vocabulary_size"])
			fmt.Fprintf(w, "Source: %v (loaded %v)\n", model["source"], model["loaded_at"])
		} else {
			fmt.Fprintln(w, "Model: not loaded")
		}
	}
	if n, ok := status["catalog_books"]; ok {
		fmt.Fprintf(w, "Catalog: %v books\n", n)
	}
	if b, ok := toUint64(status["disk_usage_bytes"]); ok {
		fmt.Fprintf(w, "Disk usage: %s\n", humanize.Bytes(b))
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func toUint64(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case int64:
		if n >= 0 {
			return uint64(n), true
		}
	case int:
		if n >= 0 {
			return uint64(n), true
		}
	case float64:
		if n >= 0 {
			return uint64(n), true
		}
	}
	return 0, false
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
