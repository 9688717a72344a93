package models

import (
	"fmt"
	"strings"
)

// RecommendationQuery is a request for books matching a study domain and its modules.
type RecommendationQuery struct {
	Domain  string   `json:"domain"`
	Modules []string `json:"modules"`
	Limit   int      `json:"limit"`
}

// Text joins domain and modules (domain first, module order kept) into one query string.
func (q *RecommendationQuery) Text() string {
	parts := make([]string, 0, len(q.Modules)+1)
	parts = append(parts, q.Domain)
	parts = append(parts, q.Modules...)
	return strings.Join(parts, " ")
}

// Validate checks the query against request constraints. maxLimit bounds Limit from above.
// The first violated constraint is returned as a *QueryError.
func (q *RecommendationQuery) Validate(maxLimit int) error {
	if len(q.Modules) == 0 {
		return &QueryError{Field: "modules", Reason: "cannot be empty"}
	}
	if q.Limit <= 0 {
		return &QueryError{Field: "limit", Reason: "must be greater than 0"}
	}
	if q.Limit > maxLimit {
		return &QueryError{Field: "limit", Reason: fmt.Sprintf("must be at most %d", maxLimit)}
	}
	return nil
}
