package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ReviewDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "soc_review_duration_seconds",
			Help:    "Full document review duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
	)

	ReviewsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soc_review_reviews_total",
			Help: "Total reviews processed",
		},
		[]string{"status"},
	)

	RuleEvaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soc_review_rule_evaluations_total",
			Help: "Per-rule evaluations by outcome source",
		},
		[]string{"source"},
	)

	ComplianceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "soc_review_compliance_score",
			Help:    "Distribution of compliance scores",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "soc_review_llm_request_duration_seconds",
			Help:    "Single model generate call duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"outcome"},
	)

	LLMFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soc_review_llm_failures_total",
			Help: "Model evaluation failures by reason",
		},
		[]string{"reason"},
	)

	LLMUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "soc_review_llm_up",
			Help: "Whether the model backend answered the last health probe",
		},
	)

	DocumentsExtracted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soc_review_documents_extracted_total",
			Help: "Uploaded documents by extraction result",
		},
		[]string{"status"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soc_review_cache_hits_total",
			Help: "Reviews served from cache",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soc_review_cache_misses_total",
			Help: "Reviews evaluated for want of a cache entry",
		},
		[]string{"cache_type"},
	)
)

func Init() {
	prometheus.MustRegister(ReviewDuration)
	prometheus.MustRegister(ReviewsTotal)
	prometheus.MustRegister(RuleEvaluations)
	prometheus.MustRegister(ComplianceScore)
	prometheus.MustRegister(LLMRequestDuration)
	prometheus.MustRegister(LLMFailures)
	prometheus.MustRegister(LLMUp)
	prometheus.MustRegister(DocumentsExtracted)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
