// Package recommend ranks catalog books against a learner's domain and modules.
package recommend

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/hyperjump/bookrec/internal/models"
	"github.com/hyperjump/bookrec/internal/vsm"
	"github.com/hyperjump/bookrec/pkg/utils"
	"go.uber.org/zap"
)

// DefaultMaxLimit is the largest number of recommendations a query may ask for.
const DefaultMaxLimit = 20

// ErrModelUnavailable is returned when no model has been loaded yet.
var ErrModelUnavailable = errors.New("model not loaded")

// Source provides the model to rank against. Current returns nil until a model is loaded.
type Source interface {
	Current() *vsm.Model
}

// SourceFunc adapts a function to Source.
type SourceFunc func() *vsm.Model

// Current calls f.
func (f SourceFunc) Current() *vsm.Model { return f() }

// Match is the corpus position of a ranked book and its unrounded similarity.
type Match struct {
	Index int
	Score float64
}

// Ranker answers recommendation queries against the current model.
type Ranker struct {
	source   Source
	maxLimit int
	logger   *zap.Logger
}

// RankerOption configures a Ranker.
type RankerOption func(*Ranker)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) RankerOption {
	return func(r *Ranker) { r.logger = l }
}

// WithMaxLimit overrides DefaultMaxLimit. Non-positive values are ignored.
func WithMaxLimit(n int) RankerOption {
	return func(r *Ranker) {
		if n > 0 {
			r.maxLimit = n
		}
	}
}

// NewRanker creates a ranker reading models from source.
func NewRanker(source Source, opts ...RankerOption) *Ranker {
	r := &Ranker{source: source, maxLimit: DefaultMaxLimit}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MaxLimit returns the largest accepted query limit.
func (r *Ranker) MaxLimit() int { return r.maxLimit }

// Recommend validates q and returns up to q.Limit books ordered by descending similarity.
// Invalid queries yield an error wrapping models.ErrInvalidQuery; no model yields ErrModelUnavailable.
func (r *Ranker) Recommend(ctx context.Context, q *models.RecommendationQuery) (*models.RecommendationResponse, error) {
	start := time.Now()
	if err := q.Validate(r.maxLimit); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := r.source.Current()
	if m == nil {
		return nil, ErrModelUnavailable
	}

	text := q.Text()
	matches := Rank(m, text, q.Limit)
	resp := &models.RecommendationResponse{
		Status:          "success",
		Count:           len(matches),
		Recommendations: make([]*models.Recommendation, 0, len(matches)),
	}
	for i, match := range matches {
		book := m.Item(match.Index)
		resp.Recommendations = append(resp.Recommendations, &models.Recommendation{
			Rank:          i + 1,
			ItemID:        book.ID,
			Title:         book.Title,
			Price:         book.Price,
			ReviewScore:   book.ReviewScore,
			ReviewSummary: book.ReviewSummary,
			Score:         utils.Round(match.Score, 4),
		})
	}
	resp.QueryTime = time.Since(start).Milliseconds()

	if r.logger != nil {
		r.logger.Debug("recommendations ranked",
			zap.String("query", text),
			zap.Int("limit", q.Limit),
			zap.Int("count", resp.Count),
			zap.Int64("query_time_ms", resp.QueryTime))
	}
	return resp, nil
}

// Rank scores every book in m against text and returns the best min(limit, m.Size())
// matches, highest first. Books with equal scores keep their corpus order.
func Rank(m *vsm.Model, text string, limit int) []Match {
	scores := m.Similarities(m.Transform(text))
	matches := make([]Match, len(scores))
	for i, s := range scores {
		matches[i] = Match{Index: i, Score: s}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if limit < 0 {
		limit = 0
	}
	if limit < len(matches) {
		matches = matches[:limit]
	}
	return matches
}
