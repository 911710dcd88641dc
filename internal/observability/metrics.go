// Package observability provides Prometheus metrics for the bundle pipeline.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	providerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shopkit",
		Subsystem: "provider",
		Name:      "requests_total",
		Help:      "Provider fetch attempts by provider and outcome.",
	}, []string{"provider", "outcome"})

	providerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shopkit",
		Subsystem: "provider",
		Name:      "request_duration_seconds",
		Help:      "Provider fetch latency.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"provider"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shopkit",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Candidate cache lookups by result.",
	}, []string{"result"})

	bundlesComposed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shopkit",
		Name:      "bundles_composed_total",
		Help:      "Bundles produced by the composer.",
	})
)

// Provider fetch outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
	OutcomeEmpty   = "empty"
)

// ObserveProviderRequest records one provider fetch attempt.
func ObserveProviderRequest(provider, outcome string, elapsed time.Duration) {
	providerRequests.WithLabelValues(provider, outcome).Inc()
	providerDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// CacheHit records a candidate cache hit.
func CacheHit() { cacheLookups.WithLabelValues("hit").Inc() }

// CacheMiss records a candidate cache miss.
func CacheMiss() { cacheLookups.WithLabelValues("miss").Inc() }

// BundleComposed records one composed bundle.
func BundleComposed() { bundlesComposed.Inc() }
