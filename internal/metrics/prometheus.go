package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "faq_search_duration_seconds",
			Help:    "Similarity search duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	SearchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faq_search_total",
			Help: "Total number of searches processed",
		},
		[]string{"status"},
	)

	ConfidenceTierTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faq_confidence_tier_total",
			Help: "Search results by confidence tier",
		},
		[]string{"tier"},
	)

	SimilarityScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "faq_similarity_score",
			Help:    "Best-match similarity scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	GapQuestionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "faq_gap_questions_total",
			Help: "Total unanswered questions recorded for analysis",
		},
	)

	AnalysisRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faq_analysis_runs_total",
			Help: "Total gap analysis runs",
		},
		[]string{"trigger"},
	)

	ClustersCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "faq_clusters_created_total",
			Help: "Total gap clusters created",
		},
	)

	ClusterReviewsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faq_cluster_reviews_total",
			Help: "Total cluster review decisions",
		},
		[]string{"decision"},
	)

	DocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faq_documents_total",
			Help: "Total knowledge base write operations",
		},
		[]string{"operation"},
	)

	EmbeddingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "faq_embedding_duration_seconds",
			Help:    "Embedding provider call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faq_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faq_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)
)

func Init() {
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchTotal)
	prometheus.MustRegister(ConfidenceTierTotal)
	prometheus.MustRegister(SimilarityScore)
	prometheus.MustRegister(GapQuestionsTotal)
	prometheus.MustRegister(AnalysisRunsTotal)
	prometheus.MustRegister(ClustersCreatedTotal)
	prometheus.MustRegister(ClusterReviewsTotal)
	prometheus.MustRegister(DocumentsTotal)
	prometheus.MustRegister(EmbeddingDuration)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
