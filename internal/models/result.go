package models

// Recommendation is a single ranked book. Score is rounded to 4 decimal places.
type Recommendation struct {
	Rank          int      `json:"rank"`
	ItemID        string   `json:"item_id"`
	Title         string   `json:"title"`
	Price         *float64 `json:"price"`
	ReviewScore   *float64 `json:"review_score"`
	ReviewSummary *string  `json:"review_summary"`
	Score         float64  `json:"score"`
}

// RecommendationResponse is the response for a recommendation request.
type RecommendationResponse struct {
	Status          string            `json:"status"`
	Count           int               `json:"count"`
	Recommendations []*Recommendation `json:"recommendations"`
	// QueryTime is the ranking time in milliseconds.
	QueryTime int64 `json:"query_time_ms"`
}
