// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the narrow surface used by adapters and the orchestrator.
type Recorder interface {
	RecordRequest(operation string, statusCode int)
	RecordProviderCall(provider string, duration time.Duration)
	RecordProviderFallback(provider string)
	RecordSessionCompleted()
}

// Collector implements Recorder backed by Prometheus.
type Collector struct {
	requests          *prometheus.CounterVec
	providerLatency   *prometheus.HistogramVec
	providerFallbacks *prometheus.CounterVec
	sessionsCompleted prometheus.Counter
}

// NewCollector registers the collectors on reg and returns the Collector.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prepvoice_requests_total",
			Help: "Orchestration requests by operation and status code.",
		}, []string{"operation", "status_code"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "prepvoice_provider_latency_seconds",
			Help:    "External provider call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		providerFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prepvoice_provider_fallbacks_total",
			Help: "Provider failures absorbed into fallback values.",
		}, []string{"provider"}),
		sessionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prepvoice_sessions_completed_total",
			Help: "Interview sessions finalized with a summary.",
		}),
	}

	reg.MustRegister(
		c.requests,
		c.providerLatency,
		c.providerFallbacks,
		c.sessionsCompleted,
	)

	return c
}

func (c *Collector) RecordRequest(operation string, statusCode int) {
	c.requests.WithLabelValues(operation, strconv.Itoa(statusCode)).Inc()
}

func (c *Collector) RecordProviderCall(provider string, duration time.Duration) {
	c.providerLatency.WithLabelValues(provider).Observe(duration.Seconds())
}

func (c *Collector) RecordProviderFallback(provider string) {
	c.providerFallbacks.WithLabelValues(provider).Inc()
}

func (c *Collector) RecordSessionCompleted() {
	c.sessionsCompleted.Inc()
}

// Handler returns the Prometheus scrape handler for the registry.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
