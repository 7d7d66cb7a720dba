// Package metrics exposes Prometheus collectors for the recommender and its HTTP surface.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "kaimono"

// Recommender Prometheus metrics.
var (
	RecommendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommend_requests_total",
			Help:      "Total number of cart recommendation requests",
		},
		[]string{"result"}, // "ok" / "empty" / "not_ready" / "error"
	)

	RecommendDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommend_duration_seconds",
			Help:      "Cart recommendation latency in seconds, including cold-start training",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	TrainingRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_runs_total",
			Help:      "Total number of model training runs",
		},
		[]string{"result"}, // "success" / "failure"
	)

	TrainingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "Model training duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	GenerationProducts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generation_products",
			Help:      "Number of products in the active model generation",
		},
	)

	GenerationVocabulary = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generation_vocabulary_size",
			Help:      "Vocabulary size of the active model generation",
		},
	)

	ResultCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_cache_total",
			Help:      "Recommendation result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	ImportedProductsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imported_products_total",
			Help:      "Total number of products imported from catalog files",
		},
		[]string{"format"},
	)
)

func init() {
	prometheus.MustRegister(
		RecommendRequestsTotal,
		RecommendDuration,
		TrainingRunsTotal,
		TrainingDuration,
		GenerationProducts,
		GenerationVocabulary,
		ResultCacheTotal,
		ImportedProductsTotal,
	)
}
