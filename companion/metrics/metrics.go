package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Classification paths.
const (
	PathKeyword  = "keyword"
	PathModel    = "model"
	PathFallback = "fallback"
	PathOffline  = "offline"
)

// Capability names.
const (
	CapabilityRefiner   = "refiner"
	CapabilityExtractor = "extractor"
)

var (
	Classifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "companion_classifications_total",
			Help: "Emotion classifications by the path that produced the result",
		},
		[]string{"path"},
	)

	CapabilityFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "companion_capability_failures_total",
			Help: "External capability failures that degraded a result",
		},
		[]string{"capability", "kind"},
	)

	CapabilityLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "companion_capability_latency_seconds",
			Help:    "External capability call latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15},
		},
		[]string{"capability"},
	)

	MemoriesExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "companion_memories_extracted_total",
			Help: "Memories proposed by the extractor",
		},
	)

	QuotaDenials = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "companion_quota_denials_total",
			Help: "Turns degraded to keyword-only because the daily quota was exhausted or unavailable",
		},
	)
)
