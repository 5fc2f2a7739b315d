// Package metrics implements a Prometheus-backed metrics sink for the
// relay multiplexer core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ethpandaops/relaymux/pkg/mux"
)

// Sink records relay interactions against a dedicated Prometheus registry.
// It satisfies mux.Metrics structurally.
type Sink struct {
	registry *prometheus.Registry

	apiRequests  *prometheus.CounterVec
	apiLatency   *prometheus.HistogramVec
	apiTimeouts  *prometheus.CounterVec
	invalidBids  *prometheus.CounterVec
}

// New creates a Sink registered against a fresh Prometheus registry, ready
// to be served over promhttp.HandlerFor.
func New() *Sink {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Sink{
		registry: registry,
		apiRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relaymux",
			Name:      "api_requests_total",
			Help:      "Count of Builder API calls made to relays, by method and relay.",
		}, []string{"method", "relay"}),
		apiLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "relaymux",
			Name:      "api_request_duration_seconds",
			Help:      "Latency of Builder API calls made to relays, by method and relay.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "relay"}),
		apiTimeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relaymux",
			Name:      "api_timeouts_total",
			Help:      "Count of Builder API calls that exceeded their deadline, by method and relay.",
		}, []string{"method", "relay"}),
		invalidBids: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relaymux",
			Name:      "auction_invalid_bids_total",
			Help:      "Count of bids dropped by validation, by relay.",
		}, []string{"relay"}),
	}
}

// Registry returns the registry Sink's collectors are registered against,
// for mounting behind promhttp.HandlerFor.
func (s *Sink) Registry() *prometheus.Registry {
	return s.registry
}

// IncAPICounter implements mux.Metrics.
func (s *Sink) IncAPICounter(method mux.APIMethod, relay string) {
	s.apiRequests.WithLabelValues(string(method), relay).Inc()
}

// ObserveAPILatency implements mux.Metrics.
func (s *Sink) ObserveAPILatency(method mux.APIMethod, relay string, seconds float64) {
	s.apiLatency.WithLabelValues(string(method), relay).Observe(seconds)
}

// IncAuctionCounter implements mux.Metrics.
func (s *Sink) IncAuctionCounter(kind mux.AuctionCounterKind, relay string) {
	if kind == mux.InvalidBid {
		s.invalidBids.WithLabelValues(relay).Inc()
	}
}

// IncAPITimeout implements mux.Metrics.
func (s *Sink) IncAPITimeout(method mux.APIMethod, relay string) {
	s.apiTimeouts.WithLabelValues(string(method), relay).Inc()
}
