package metrics

import (
	"time"

	"github.com/hyperjump/bookrec/internal/vsm"
	"github.com/prometheus/client_golang/prometheus"
)

// Recommendation outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeInvalid     = "invalid"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

var (
	recommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendation requests by outcome",
		},
		[]string{"outcome"},
	)

	rankingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ranking_duration_seconds",
			Help:      "Time spent scoring and ranking the corpus for one query",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	modelItems = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "model_items",
		Help:      "Books in the serving model",
	})

	modelVocabulary = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "model_vocabulary_terms",
		Help:      "Vocabulary size of the serving model",
	})

	modelLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_loads_total",
			Help:      "Model load attempts by result",
		},
		[]string{"result"}, // "ok" / "error"
	)
)

func init() {
	prometheus.MustRegister(recommendationsTotal, rankingDuration, modelItems, modelVocabulary, modelLoadsTotal)
}

// ObserveRecommendation records one recommendation request. d is only observed for OutcomeOK.
func ObserveRecommendation(outcome string, d time.Duration) {
	recommendationsTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		rankingDuration.Observe(d.Seconds())
	}
}

// ObserveModelLoad records a load attempt and, on success, the new model's shape.
// Its signature matches loader.OnLoad.
func ObserveModelLoad(m *vsm.Model, err error) {
	if err != nil {
		modelLoadsTotal.WithLabelValues("error").Inc()
		return
	}
	modelLoadsTotal.WithLabelValues("ok").Inc()
	SetModel(m)
}

// SetModel records the shape of the serving model.
func SetModel(m *vsm.Model) {
	if m == nil {
		modelItems.Set(0)
		modelVocabulary.Set(0)
		return
	}
	modelItems.Set(float64(m.Size()))
	modelVocabulary.Set(float64(m.VocabularySize()))
}
