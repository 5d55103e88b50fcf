// Package metrics exposes Prometheus collectors for the assistant.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RoutedInputs counts chat inputs by how the router handled them.
	RoutedInputs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eeebee",
		Name:      "routed_inputs_total",
		Help:      "Chat inputs by routing outcome (listing, selection, llm, error).",
	}, []string{"role", "route"})

	// GatewayRequests counts remote REST calls by operation and outcome.
	GatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eeebee",
		Name:      "gateway_requests_total",
		Help:      "Remote data gateway calls.",
	}, []string{"op", "outcome"})

	// GatewayDuration observes remote REST call latency.
	GatewayDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "eeebee",
		Name:      "gateway_request_duration_seconds",
		Help:      "Remote data gateway call latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	// LLMStreams counts chat completion streams by outcome.
	LLMStreams = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eeebee",
		Name:      "llm_streams_total",
		Help:      "Chat completion streams.",
	}, []string{"outcome"})

	// CacheLookups counts resource cache hits and misses.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eeebee",
		Name:      "cache_lookups_total",
		Help:      "Remedial resource cache lookups.",
	}, []string{"result"})

	// ActiveSessions reports live sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "eeebee",
		Name:      "active_sessions",
		Help:      "Live chat sessions.",
	})
)

// ObserveGateway records one gateway call.
func ObserveGateway(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	GatewayRequests.WithLabelValues(op, outcome).Inc()
	GatewayDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
