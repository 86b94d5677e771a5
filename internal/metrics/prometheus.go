package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ClaimsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fra_atlas_claims_created_total",
			Help: "Total claims created, by form category",
		},
		[]string{"category"},
	)

	ClaimStatusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fra_atlas_claim_status_transitions_total",
			Help: "Total claim status transitions",
		},
		[]string{"to_status"},
	)

	ClaimsDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fra_atlas_claims_deleted_total",
			Help: "Total claims deleted",
		},
	)

	OCRDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fra_atlas_ocr_duration_seconds",
			Help:    "Document OCR round-trip duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
	)

	OCRConfidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fra_atlas_ocr_confidence_score",
			Help:    "OCR extraction confidence scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	DocumentsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fra_atlas_documents_processed_total",
			Help: "Total claim documents processed, by outcome",
		},
		[]string{"status"},
	)

	ClassificationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fra_atlas_classification_duration_seconds",
			Help:    "Land classification duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"mode"},
	)

	ClassificationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fra_atlas_classification_total",
			Help: "Total land classification runs, by mode",
		},
		[]string{"mode"},
	)

	SearchFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fra_atlas_search_failures_total",
			Help: "Claim searches that failed and returned empty results",
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fra_atlas_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fra_atlas_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	DSSRecommendations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fra_atlas_dss_recommendations_total",
			Help: "Total scheme recommendation requests, by outcome",
		},
		[]string{"status"},
	)

	EventSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fra_atlas_event_subscribers",
			Help: "Currently connected event stream subscribers",
		},
	)
)

func Init() {
	prometheus.MustRegister(ClaimsCreated)
	prometheus.MustRegister(ClaimStatusTransitions)
	prometheus.MustRegister(ClaimsDeleted)
	prometheus.MustRegister(OCRDuration)
	prometheus.MustRegister(OCRConfidence)
	prometheus.MustRegister(DocumentsProcessed)
	prometheus.MustRegister(ClassificationDuration)
	prometheus.MustRegister(ClassificationTotal)
	prometheus.MustRegister(SearchFailures)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(DSSRecommendations)
	prometheus.MustRegister(EventSubscribers)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
