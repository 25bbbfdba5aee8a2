package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// AnalysesTotal counts completed analyze requests by outcome.
	AnalysesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "thumbnailtest",
		Subsystem: "analyzer",
		Name:      "analyses_total",
		Help:      "Total number of analyze requests processed, labeled by result.",
	}, []string{"result"})

	// LLMRequestDurationSeconds is the latency of a single vision model call.
	LLMRequestDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "thumbnailtest",
		Subsystem: "analyzer",
		Name:      "llm_request_duration_seconds",
		Help:      "Time spent in the vision model call per analyze request.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	// LLMFallbackTotal counts analyses that used the synthetic fallback scorer.
	LLMFallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "thumbnailtest",
		Subsystem: "analyzer",
		Name:      "llm_fallback_total",
		Help:      "Total number of analyses where model output could not be parsed and synthetic scores were used.",
	})

	// QuotaRejectionsTotal counts requests rejected by the free tier limit.
	QuotaRejectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "thumbnailtest",
		Subsystem: "analyzer",
		Name:      "quota_rejections_total",
		Help:      "Total number of analyze requests rejected before any model call due to the monthly limit.",
	})
)

// Register registers analyzer metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			AnalysesTotal,
			LLMRequestDurationSeconds,
			LLMFallbackTotal,
			QuotaRejectionsTotal,
		)
	})
}
